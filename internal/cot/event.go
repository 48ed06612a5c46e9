package cot

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Protocol constants.
const (
	Version = "2.0"

	// TimeLayout is the CoT timestamp format (UTC, millisecond precision).
	TimeLayout = "2006-01-02T15:04:05.000Z"

	// Unknown is the value CoT consumers treat as "not known" for hae, ce and le.
	Unknown = 9999999.0

	HowMachinePredicted = "m-p"
	HowHumanGenerated   = "h-g-i-g-o"

	TypeCivilFixedWing = "a-n-A-C-F"
	TypePing           = "t-x-c-t"
)

// Event is the root element of a CoT message.
type Event struct {
	XMLName xml.Name `xml:"event"`
	Version string   `xml:"version,attr"`
	UID     string   `xml:"uid,attr"`
	Type    string   `xml:"type,attr"`
	How     string   `xml:"how,attr"`
	Time    Time     `xml:"time,attr"`
	Start   Time     `xml:"start,attr"`
	Stale   Time     `xml:"stale,attr"`
	Point   Point    `xml:"point"`
	Detail  Detail   `xml:"detail"`
}

// Point is a WGS84 position with height above ellipsoid and error radii.
type Point struct {
	Lat Float `xml:"lat,attr"`
	Lon Float `xml:"lon,attr"`
	HAE Float `xml:"hae,attr"`
	CE  Float `xml:"ce,attr"`
	LE  Float `xml:"le,attr"`
}

// Detail holds the optional sub-elements this bridge emits.
type Detail struct {
	Contact *Contact `xml:"contact,omitempty"`
	Track   *Track   `xml:"track,omitempty"`
}

// Contact carries the display name shown next to the marker.
type Contact struct {
	Callsign string `xml:"callsign,attr"`
}

// Track is the direction of travel (degrees true) and speed (m/s).
type Track struct {
	Course Float `xml:"course,attr"`
	Speed  Float `xml:"speed,attr"`
}

// Encode renders the event as an XML document.
func (e *Event) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	if err := xml.NewEncoder(&buf).Encode(e); err != nil {
		return nil, fmt.Errorf("encode cot event %s: %w", e.UID, err)
	}

	return buf.Bytes(), nil
}

// Decode parses a single CoT XML document.
func Decode(data []byte) (*Event, error) {
	var e Event
	if err := xml.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode cot event: %w", err)
	}
	return &e, nil
}

// Time is a timestamp rendered in TimeLayout.
type Time time.Time

// MarshalXMLAttr implements xml.MarshalerAttr.
func (t Time) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	return xml.Attr{Name: name, Value: time.Time(t).UTC().Format(TimeLayout)}, nil
}

// UnmarshalXMLAttr implements xml.UnmarshalerAttr.
func (t *Time) UnmarshalXMLAttr(attr xml.Attr) error {
	parsed, err := time.Parse(time.RFC3339Nano, attr.Value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", attr.Name.Local, err)
	}
	*t = Time(parsed)
	return nil
}

// Std returns the value as a time.Time.
func (t Time) Std() time.Time {
	return time.Time(t)
}

// Float is a float64 rendered in plain decimal notation. encoding/xml would
// otherwise write 9999999 as 9.999999e+06.
type Float float64

// MarshalXMLAttr implements xml.MarshalerAttr.
func (f Float) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return xml.Attr{}, fmt.Errorf("attribute %s: non-finite value %v", name.Local, v)
	}
	return xml.Attr{Name: name, Value: strconv.FormatFloat(v, 'f', -1, 64)}, nil
}

// UnmarshalXMLAttr implements xml.UnmarshalerAttr.
func (f *Float) UnmarshalXMLAttr(attr xml.Attr) error {
	v, err := strconv.ParseFloat(attr.Value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", attr.Name.Local, err)
	}
	*f = Float(v)
	return nil
}
