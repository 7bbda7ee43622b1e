// Package xmlsnapshot parses the public iLO identification response
// served at GET /xmldata?item=all.
//
// encoding/xml is used rather than a third-party XML library: it never
// fetches a DTD or expands an external entity, so external entity
// resolution is disabled by construction and there is nothing for a
// hardened third-party parser to add here.
package xmlsnapshot

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// rimpPrefix is the literal byte sequence a valid response body must
// start with.
var rimpPrefix = []byte("<RIMP>")

// RIMP is the root element of an iLO identification response. Field
// names mirror the real device's XML vocabulary: HSI (host system
// information) and MP (management processor information).
type RIMP struct {
	XMLName xml.Name `xml:"RIMP"`
	HSI     HSI      `xml:"HSI"`
	MP      MP       `xml:"MP"`
}

// HSI carries host-system identification fields.
type HSI struct {
	SBSN string `xml:"SBSN"` // system board serial number
	SPN  string `xml:"SPN"`  // system product name
	UUID string `xml:"cUUID"`
}

// MP carries management-processor identification fields.
type MP struct {
	PN   string `xml:"PN"`   // product name, e.g. "Integrated Lights-Out 5"
	SN   string `xml:"SN"`   // serial number
	FWRI string `xml:"FWRI"` // firmware revision
}

// Parse validates and decodes a probe response body into a RIMP snapshot.
// It returns an error if the body does not start with the literal
// "<RIMP>", does not parse as well-formed XML, or its root element is not
// named RIMP.
func Parse(body []byte) (*RIMP, error) {
	if !bytes.HasPrefix(body, rimpPrefix) {
		return nil, fmt.Errorf("xmlsnapshot: body does not start with %q", rimpPrefix)
	}

	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.Strict = true

	var rimp RIMP
	if err := decoder.Decode(&rimp); err != nil {
		return nil, fmt.Errorf("xmlsnapshot: decode: %w", err)
	}
	if rimp.XMLName.Local != "RIMP" {
		return nil, fmt.Errorf("xmlsnapshot: unexpected root element %q", rimp.XMLName.Local)
	}
	return &rimp, nil
}
