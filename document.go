package osmroute

import (
	"encoding/xml"
	"os"

	"github.com/pkg/errors"
)

// xmlElement is a generic in-memory XML element. The whole document is
// decoded into one tree before any worker starts; the tree is read-only
// afterwards, so workers traverse it without synchronization.
type xmlElement struct {
	XMLName  xml.Name
	Attrs    []xml.Attr   `xml:",any,attr"`
	Children []xmlElement `xml:",any"`
}

// attr returns the value of the named attribute and whether it is present.
func (el *xmlElement) attr(name string) (string, bool) {
	for i := range el.Attrs {
		if el.Attrs[i].Name.Local == name {
			return el.Attrs[i].Value, true
		}
	}
	return "", false
}

func (el *xmlElement) hasChild(name string) bool {
	for i := range el.Children {
		if el.Children[i].XMLName.Local == name {
			return true
		}
	}
	return false
}

// readDocument reads the whole file into one buffer and parses it once.
// An unreadable file, unparsable XML or a wrong root element abort the
// ingestion. The <meta> element written by some exporters is required only
// in strict mode; common extracts omit it.
func readDocument(filename string, strict bool) (*xmlElement, error) {
	buf, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read file '%s'", filename)
	}
	root := &xmlElement{}
	if err := xml.Unmarshal(buf, root); err != nil {
		return nil, errors.Wrapf(err, "Can't parse XML document '%s'", filename)
	}
	if root.XMLName.Local != "osm" {
		return nil, errors.Errorf("Root element is '%s', expected 'osm'", root.XMLName.Local)
	}
	if strict && !root.hasChild("meta") {
		return nil, errors.New("Document has no 'meta' element")
	}
	return root, nil
}
