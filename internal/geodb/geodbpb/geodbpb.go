// Package geodbpb contains the wire codec for the geolocation snapshot
// file.  The format is a standard protocol-buffers message encoded and
// decoded by hand with package protowire.  Unknown fields are skipped
// on decode, so readers of older versions of the format can open files
// written by newer ones.
package geodbpb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Geo is the top-level snapshot message.  The range sections are
// always present in practice; the catalogue sections are only written
// when the builder is configured to store the catalogue alongside the
// ranges.
type Geo struct {
	IPsV4     []*IPv4Range
	IPsV6     []*IPv6Range
	Countries []*Country
	States    []*State
	Cities    []*City
}

// IPv4Range is an inclusive IPv4 address range and its location.
type IPv4Range struct {
	CountryKey string
	StateKey   string
	CityName   string
	From       uint32
	To         uint32
	CountryID  uint32
	StateID    uint32
	CityID     uint32
}

// IPv6Range is an inclusive IPv6 address range and its location.  The
// addresses are split into high and low 64-bit halves.
type IPv6Range struct {
	CountryKey string
	StateKey   string
	CityName   string
	FromHi     uint64
	FromLo     uint64
	ToHi       uint64
	ToLo       uint64
	CountryID  uint32
	StateID    uint32
	CityID     uint32
}

// Country is a country catalogue entry.
type Country struct {
	Key    string
	Name   string
	NameEn string
	ID     uint32
	Weight uint32
}

// State is a state catalogue entry.
type State struct {
	Key       string
	Name      string
	NameEn    string
	ID        uint32
	CountryID uint32
	Weight    uint32
}

// City is a city catalogue entry.
type City struct {
	Key     string
	Name    string
	NameEn  string
	ID      uint32
	StateID uint32
	Weight  uint32
}

// Field numbers of the Geo message.
const (
	geoFieldIPsV4     protowire.Number = 1
	geoFieldIPsV6     protowire.Number = 2
	geoFieldCountries protowire.Number = 3
	geoFieldStates    protowire.Number = 4
	geoFieldCities    protowire.Number = 5
)

// appendUint appends a varint field if v is not zero.
func appendUint(b []byte, num protowire.Number, v uint64) (res []byte) {
	if v == 0 {
		return b
	}

	b = protowire.AppendTag(b, num, protowire.VarintType)

	return protowire.AppendVarint(b, v)
}

// appendString appends a string field if s is not empty.
func appendString(b []byte, num protowire.Number, s string) (res []byte) {
	if s == "" {
		return b
	}

	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendString(b, s)
}

// appendMessage appends msg as a length-prefixed submessage field.
func appendMessage(b []byte, num protowire.Number, msg []byte) (res []byte) {
	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendBytes(b, msg)
}

// marshalIPv4Range encodes r into a submessage body.
func marshalIPv4Range(r *IPv4Range) (b []byte) {
	b = appendUint(b, 1, uint64(r.From))
	b = appendUint(b, 2, uint64(r.To))
	b = appendUint(b, 3, uint64(r.CountryID))
	b = appendUint(b, 4, uint64(r.StateID))
	b = appendUint(b, 5, uint64(r.CityID))
	b = appendString(b, 6, r.CountryKey)
	b = appendString(b, 7, r.StateKey)
	b = appendString(b, 8, r.CityName)

	return b
}

// marshalIPv6Range encodes r into a submessage body.
func marshalIPv6Range(r *IPv6Range) (b []byte) {
	b = appendUint(b, 1, r.FromHi)
	b = appendUint(b, 2, r.FromLo)
	b = appendUint(b, 3, r.ToHi)
	b = appendUint(b, 4, r.ToLo)
	b = appendUint(b, 5, uint64(r.CountryID))
	b = appendUint(b, 6, uint64(r.StateID))
	b = appendUint(b, 7, uint64(r.CityID))
	b = appendString(b, 8, r.CountryKey)
	b = appendString(b, 9, r.StateKey)
	b = appendString(b, 10, r.CityName)

	return b
}

// marshalCountry encodes c into a submessage body.
func marshalCountry(c *Country) (b []byte) {
	b = appendUint(b, 1, uint64(c.ID))
	b = appendString(b, 2, c.Key)
	b = appendString(b, 3, c.Name)
	b = appendString(b, 4, c.NameEn)
	b = appendUint(b, 5, uint64(c.Weight))

	return b
}

// marshalState encodes s into a submessage body.
func marshalState(s *State) (b []byte) {
	b = appendUint(b, 1, uint64(s.ID))
	b = appendUint(b, 2, uint64(s.CountryID))
	b = appendString(b, 3, s.Key)
	b = appendString(b, 4, s.Name)
	b = appendString(b, 5, s.NameEn)
	b = appendUint(b, 6, uint64(s.Weight))

	return b
}

// marshalCity encodes c into a submessage body.
func marshalCity(c *City) (b []byte) {
	b = appendUint(b, 1, uint64(c.ID))
	b = appendUint(b, 2, uint64(c.StateID))
	b = appendString(b, 3, c.Key)
	b = appendString(b, 4, c.Name)
	b = appendString(b, 5, c.NameEn)
	b = appendUint(b, 6, uint64(c.Weight))

	return b
}

// Marshal encodes g into the snapshot wire format.  g must not be nil.
func Marshal(g *Geo) (b []byte) {
	for _, r := range g.IPsV4 {
		b = appendMessage(b, geoFieldIPsV4, marshalIPv4Range(r))
	}

	for _, r := range g.IPsV6 {
		b = appendMessage(b, geoFieldIPsV6, marshalIPv6Range(r))
	}

	for _, c := range g.Countries {
		b = appendMessage(b, geoFieldCountries, marshalCountry(c))
	}

	for _, s := range g.States {
		b = appendMessage(b, geoFieldStates, marshalState(s))
	}

	for _, c := range g.Cities {
		b = appendMessage(b, geoFieldCities, marshalCity(c))
	}

	return b
}

// fieldValue is a decoded scalar field.  Exactly one of the value
// members is meaningful, depending on the wire type.
type fieldValue struct {
	str string
	num protowire.Number
	val uint64
}

// walkMessage decodes the submessage body b and calls set for each
// varint and bytes field, skipping fields of other wire types.
func walkMessage(b []byte, set func(fv fieldValue)) (err error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}

		b = b[n:]

		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return protowire.ParseError(m)
			}

			set(fieldValue{num: num, val: v})
			b = b[m:]
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return protowire.ParseError(m)
			}

			set(fieldValue{num: num, str: string(v)})
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return protowire.ParseError(m)
			}

			b = b[m:]
		}
	}

	return nil
}

// unmarshalIPv4Range decodes an IPv4Range submessage body.
func unmarshalIPv4Range(b []byte) (r *IPv4Range, err error) {
	r = &IPv4Range{}
	err = walkMessage(b, func(fv fieldValue) {
		switch fv.num {
		case 1:
			r.From = uint32(fv.val)
		case 2:
			r.To = uint32(fv.val)
		case 3:
			r.CountryID = uint32(fv.val)
		case 4:
			r.StateID = uint32(fv.val)
		case 5:
			r.CityID = uint32(fv.val)
		case 6:
			r.CountryKey = fv.str
		case 7:
			r.StateKey = fv.str
		case 8:
			r.CityName = fv.str
		}
	})

	return r, err
}

// unmarshalIPv6Range decodes an IPv6Range submessage body.
func unmarshalIPv6Range(b []byte) (r *IPv6Range, err error) {
	r = &IPv6Range{}
	err = walkMessage(b, func(fv fieldValue) {
		switch fv.num {
		case 1:
			r.FromHi = fv.val
		case 2:
			r.FromLo = fv.val
		case 3:
			r.ToHi = fv.val
		case 4:
			r.ToLo = fv.val
		case 5:
			r.CountryID = uint32(fv.val)
		case 6:
			r.StateID = uint32(fv.val)
		case 7:
			r.CityID = uint32(fv.val)
		case 8:
			r.CountryKey = fv.str
		case 9:
			r.StateKey = fv.str
		case 10:
			r.CityName = fv.str
		}
	})

	return r, err
}

// unmarshalCountry decodes a Country submessage body.
func unmarshalCountry(b []byte) (c *Country, err error) {
	c = &Country{}
	err = walkMessage(b, func(fv fieldValue) {
		switch fv.num {
		case 1:
			c.ID = uint32(fv.val)
		case 2:
			c.Key = fv.str
		case 3:
			c.Name = fv.str
		case 4:
			c.NameEn = fv.str
		case 5:
			c.Weight = uint32(fv.val)
		}
	})

	return c, err
}

// unmarshalState decodes a State submessage body.
func unmarshalState(b []byte) (s *State, err error) {
	s = &State{}
	err = walkMessage(b, func(fv fieldValue) {
		switch fv.num {
		case 1:
			s.ID = uint32(fv.val)
		case 2:
			s.CountryID = uint32(fv.val)
		case 3:
			s.Key = fv.str
		case 4:
			s.Name = fv.str
		case 5:
			s.NameEn = fv.str
		case 6:
			s.Weight = uint32(fv.val)
		}
	})

	return s, err
}

// unmarshalCity decodes a City submessage body.
func unmarshalCity(b []byte) (c *City, err error) {
	c = &City{}
	err = walkMessage(b, func(fv fieldValue) {
		switch fv.num {
		case 1:
			c.ID = uint32(fv.val)
		case 2:
			c.StateID = uint32(fv.val)
		case 3:
			c.Key = fv.str
		case 4:
			c.Name = fv.str
		case 5:
			c.NameEn = fv.str
		case 6:
			c.Weight = uint32(fv.val)
		}
	})

	return c, err
}

// Unmarshal decodes the snapshot wire format.  Unknown fields are
// skipped.  Malformed input results in an error.
func Unmarshal(b []byte) (g *Geo, err error) {
	g = &Geo{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("decoding tag: %w", protowire.ParseError(n))
		}

		b = b[n:]

		if typ != protowire.BytesType {
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return nil, fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
			}

			b = b[m:]

			continue
		}

		msg, m := protowire.ConsumeBytes(b)
		if m < 0 {
			return nil, fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
		}

		b = b[m:]

		switch num {
		case geoFieldIPsV4:
			var r *IPv4Range
			r, err = unmarshalIPv4Range(msg)
			if err != nil {
				return nil, fmt.Errorf("ipv4 range at index %d: %w", len(g.IPsV4), err)
			}

			g.IPsV4 = append(g.IPsV4, r)
		case geoFieldIPsV6:
			var r *IPv6Range
			r, err = unmarshalIPv6Range(msg)
			if err != nil {
				return nil, fmt.Errorf("ipv6 range at index %d: %w", len(g.IPsV6), err)
			}

			g.IPsV6 = append(g.IPsV6, r)
		case geoFieldCountries:
			var c *Country
			c, err = unmarshalCountry(msg)
			if err != nil {
				return nil, fmt.Errorf("country at index %d: %w", len(g.Countries), err)
			}

			g.Countries = append(g.Countries, c)
		case geoFieldStates:
			var s *State
			s, err = unmarshalState(msg)
			if err != nil {
				return nil, fmt.Errorf("state at index %d: %w", len(g.States), err)
			}

			g.States = append(g.States, s)
		case geoFieldCities:
			var c *City
			c, err = unmarshalCity(msg)
			if err != nil {
				return nil, fmt.Errorf("city at index %d: %w", len(g.Cities), err)
			}

			g.Cities = append(g.Cities, c)
		}
	}

	return g, nil
}
