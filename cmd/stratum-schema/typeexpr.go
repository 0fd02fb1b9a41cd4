package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stratumdb/stratum/internal/schema"
)

// parseTypeExpr parses the textual type syntax accepted on the command
// line, the inverse of DataType.String: scalar names (Boolean, String,
// Int8..Int64, UInt8..UInt64, Float32, Float64), the single-child
// wrappers Nullable(T), Array(T) and Map(T), and Tuple(name T, ...).
func parseTypeExpr(s string) (schema.DataType, error) {
	p := &typeParser{input: s}
	typ, err := p.parseType()
	if err != nil {
		return schema.DataType{}, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return schema.DataType{}, fmt.Errorf("unexpected trailing input at %q", p.input[p.pos:])
	}
	return typ, nil
}

// parseFieldList parses comma-separated "name Type" pairs, e.g.
// "id UInt64, attrs Tuple(a Boolean, b String)".
func parseFieldList(s string) ([]schema.Field, error) {
	p := &typeParser{input: s}
	var fields []schema.Field
	for {
		p.skipSpaces()
		name := p.readIdent()
		if name == "" {
			return nil, fmt.Errorf("expected column name at %q", p.input[p.pos:])
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		fields = append(fields, schema.NewField(name, typ))

		p.skipSpaces()
		if p.pos == len(p.input) {
			return fields, nil
		}
		if !p.consume(',') {
			return nil, fmt.Errorf("expected ',' at %q", p.input[p.pos:])
		}
	}
}

var scalarTypes = map[string]schema.DataType{
	"Boolean": schema.BooleanType(),
	"String":  schema.StringType(),
	"Int8":    schema.NumberType(schema.NumberInt8),
	"Int16":   schema.NumberType(schema.NumberInt16),
	"Int32":   schema.NumberType(schema.NumberInt32),
	"Int64":   schema.NumberType(schema.NumberInt64),
	"UInt8":   schema.NumberType(schema.NumberUInt8),
	"UInt16":  schema.NumberType(schema.NumberUInt16),
	"UInt32":  schema.NumberType(schema.NumberUInt32),
	"UInt64":  schema.NumberType(schema.NumberUInt64),
	"Float32": schema.NumberType(schema.NumberFloat32),
	"Float64": schema.NumberType(schema.NumberFloat64),
}

type typeParser struct {
	input string
	pos   int
}

func (p *typeParser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) consume(c byte) bool {
	p.skipSpaces()
	if p.pos < len(p.input) && p.input[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *typeParser) readIdent() string {
	p.skipSpaces()
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' {
			p.pos++
			continue
		}
		break
	}
	return p.input[start:p.pos]
}

func (p *typeParser) parseType() (schema.DataType, error) {
	ident := p.readIdent()
	if ident == "" {
		return schema.DataType{}, fmt.Errorf("expected type at %q", p.input[p.pos:])
	}

	if scalar, ok := scalarTypes[ident]; ok {
		return scalar, nil
	}

	switch ident {
	case "Nullable", "Array", "Map":
		if !p.consume('(') {
			return schema.DataType{}, fmt.Errorf("expected '(' after %s", ident)
		}
		inner, err := p.parseType()
		if err != nil {
			return schema.DataType{}, err
		}
		if !p.consume(')') {
			return schema.DataType{}, fmt.Errorf("expected ')' after %s argument", ident)
		}
		switch ident {
		case "Nullable":
			return schema.NullableType(inner), nil
		case "Array":
			return schema.ArrayType(inner), nil
		default:
			return schema.MapType(inner), nil
		}
	case "Tuple":
		if !p.consume('(') {
			return schema.DataType{}, fmt.Errorf("expected '(' after Tuple")
		}
		var names []string
		var types []schema.DataType
		for {
			name := p.readIdent()
			if name == "" {
				return schema.DataType{}, fmt.Errorf("expected tuple member name at %q", p.input[p.pos:])
			}
			typ, err := p.parseType()
			if err != nil {
				return schema.DataType{}, err
			}
			names = append(names, name)
			types = append(types, typ)
			if p.consume(',') {
				continue
			}
			break
		}
		if !p.consume(')') {
			return schema.DataType{}, fmt.Errorf("expected ')' after tuple members")
		}
		return schema.TupleType(names, types), nil
	}

	return schema.DataType{}, fmt.Errorf("unknown type %q (known scalars: %s)", ident, strings.Join(scalarNames(), ", "))
}

func scalarNames() []string {
	names := make([]string, 0, len(scalarTypes))
	for name := range scalarTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
