package xmlsnapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ValidBody(t *testing.T) {
	body := []byte(`<RIMP><HSI><SBSN>X</SBSN><cUUID>35363537-3034-435A-4A30-303330593035</cUUID></HSI></RIMP>`)
	rimp, err := Parse(body)
	require.NoError(t, err)
	assert.Equal(t, "X", rimp.HSI.SBSN)
	assert.Equal(t, "35363537-3034-435A-4A30-303330593035", rimp.HSI.UUID)
}

func TestParse_RejectsNonRIMPRoot(t *testing.T) {
	body := []byte(`<HTML>nope</HTML>`)
	_, err := Parse(body)
	assert.Error(t, err)
}

func TestParse_RejectsMalformedXML(t *testing.T) {
	body := []byte(`<RIMP><HSI>`) // starts with <RIMP> but never closes
	_, err := Parse(body)
	assert.Error(t, err)
}

func TestParse_RejectsWrongRootElement(t *testing.T) {
	// Root name shares the "RIMP" letters but the body does not start with the literal <RIMP> tag.
	body := []byte(`<RIMPOSTOR></RIMPOSTOR>`)
	_, err := Parse(body)
	assert.Error(t, err)
}
