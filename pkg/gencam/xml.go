package gencam

import (
	"fmt"
	"strings"
)

// featureXML renders the device-specific GenICam feature fragment: the
// PixelFormat enumeration built from the mapped catalog entries plus
// the sensor bound integers. Entries without an abstract mapping are
// not advertised.
func featureXML(c *Catalog) string {
	var b strings.Builder

	b.WriteString("<Enumeration Name=\"PixelFormat\" NameSpace=\"Standard\">\n")
	b.WriteString("  <DisplayName>Pixel Format</DisplayName>\n")
	for _, e := range c.Entries() {
		if !e.Valid() {
			continue
		}
		fmt.Fprintf(&b, "  <EnumEntry Name=%q NameSpace=\"Standard\">\n", e.Name)
		fmt.Fprintf(&b, "    <Value>%d</Value>\n", e.Abstract)
		b.WriteString("  </EnumEntry>\n")
	}
	b.WriteString("  <pValue>PixelFormatRegister</pValue>\n")
	b.WriteString("</Enumeration>\n")

	w, h := c.SensorSize()
	fmt.Fprintf(&b, "<Integer Name=\"SensorWidth\" NameSpace=\"Standard\">\n  <Value>%d</Value>\n</Integer>\n", w)
	fmt.Fprintf(&b, "<Integer Name=\"SensorHeight\" NameSpace=\"Standard\">\n  <Value>%d</Value>\n</Integer>\n", h)

	return b.String()
}
