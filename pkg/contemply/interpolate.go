package contemply

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultStartMarker = "$"
	SectionMarker      = "§"
)

// Filters is a registry of filter functions applied with name!filter.
type Filters map[string]func(v Value) (Value, error)

// DefaultFilters provides a small set of common filters.
func DefaultFilters() Filters {
	return Filters{
		"upper": func(v Value) (Value, error) { return StringValue(strings.ToUpper(v.String())), nil },
		"lower": func(v Value) (Value, error) { return StringValue(strings.ToLower(v.String())), nil },
		"trim":  func(v Value) (Value, error) { return StringValue(strings.TrimSpace(v.String())), nil },
		"capitalize": func(v Value) (Value, error) {
			return StringValue(Capitalize(v.String())), nil
		},
		"join": func(v Value) (Value, error) {
			l, ok := v.(ListValue)
			if !ok {
				return v, nil
			}
			parts := make([]string, len(l))
			for i, it := range l {
				parts[i] = it.String()
			}
			return StringValue(strings.Join(parts, ", ")), nil
		},
		"length": func(v Value) (Value, error) {
			switch t := v.(type) {
			case ListValue:
				return IntValue(len(t)), nil
			case StringValue:
				return IntValue(utf8.RuneCountInString(string(t))), nil
			}
			return nil, fmt.Errorf("length of %s is undefined", v.Type())
		},
	}
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// Interpolator substitutes variable references in text. With an empty End
// a reference is Start followed by a name; otherwise it is any text
// between Start and End, surrounding blanks ignored. A backslash before
// Start produces Start literally.
type Interpolator struct {
	Start   string
	End     string
	Lookup  func(name string) (Value, error)
	Filters Filters
}

func (in *Interpolator) Interpolate(text string) (string, error) {
	start := in.Start
	if start == "" {
		start = DefaultStartMarker
	}
	var out strings.Builder
	i := 0
	for i < len(text) {
		if text[i] == '\\' && strings.HasPrefix(text[i+1:], start) {
			out.WriteString(start)
			i += 1 + len(start)
			continue
		}
		if !strings.HasPrefix(text[i:], start) {
			out.WriteByte(text[i])
			i++
			continue
		}
		var (
			s   string
			n   int
			err error
		)
		if in.End == "" {
			s, n, err = in.prefixRef(text[i+len(start):])
		} else {
			s, n, err = in.delimitedRef(text[i+len(start):])
		}
		if err != nil {
			return "", err
		}
		if n == 0 {
			out.WriteString(start)
			i += len(start)
			continue
		}
		out.WriteString(s)
		i += len(start) + n
	}
	return out.String(), nil
}

// prefixRef resolves name[idx]!filter at the start of text. It returns the
// replacement and how many bytes it consumed; zero means no reference.
func (in *Interpolator) prefixRef(text string) (string, int, error) {
	name := scanIdent(text)
	if name == "" {
		return "", 0, nil
	}
	i := len(name)
	idx := -1
	if i < len(text) && text[i] == '[' {
		j := i + 1
		for j < len(text) && isDigit(text[j]) {
			j++
		}
		if j > i+1 && j < len(text) && text[j] == ']' {
			idx, _ = strconv.Atoi(text[i+1 : j])
			i = j + 1
		}
	}
	var filters []string
	for i < len(text) && text[i] == '!' {
		f := scanIdent(text[i+1:])
		if f == "" || in.Filters[f] == nil {
			break
		}
		filters = append(filters, f)
		i += 1 + len(f)
	}
	s, err := in.resolve(name, idx, filters)
	return s, i, err
}

// delimitedRef resolves "name[idx]!filter End" at the start of text.
func (in *Interpolator) delimitedRef(text string) (string, int, error) {
	end := strings.Index(text, in.End)
	if end < 0 {
		return "", 0, nil
	}
	ref := strings.TrimSpace(text[:end])
	name := scanIdent(ref)
	if name == "" {
		return "", 0, nil
	}
	rest := ref[len(name):]
	idx := -1
	if strings.HasPrefix(rest, "[") {
		rb := strings.IndexByte(rest, ']')
		if rb < 0 {
			return "", 0, nil
		}
		n, err := strconv.Atoi(rest[1:rb])
		if err != nil {
			return "", 0, nil
		}
		idx = n
		rest = rest[rb+1:]
	}
	var filters []string
	if rest != "" {
		if rest[0] != '!' {
			return "", 0, nil
		}
		for _, f := range strings.Split(rest[1:], "!") {
			f = strings.TrimSpace(f)
			if in.Filters[f] == nil {
				return "", 0, fmt.Errorf("Unknown filter: %q", f)
			}
			filters = append(filters, f)
		}
	}
	s, err := in.resolve(name, idx, filters)
	return s, end + len(in.End), err
}

func (in *Interpolator) resolve(name string, idx int, filters []string) (string, error) {
	v, err := in.Lookup(name)
	if err != nil {
		return "", err
	}
	if idx >= 0 {
		l, ok := v.(ListValue)
		if !ok {
			return "", fmt.Errorf("Variable %q is not a list.", name)
		}
		if idx >= len(l) {
			return "", fmt.Errorf("Index %d out of range for %q", idx, name)
		}
		v = l[idx]
	}
	for _, f := range filters {
		if v, err = in.Filters[f](v); err != nil {
			return "", err
		}
	}
	return v.String(), nil
}

func scanIdent(s string) string {
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return s[:i]
	}
	return s
}
