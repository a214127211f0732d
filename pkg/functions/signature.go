package functions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/smertiens/contemply/pkg/contemply"
)

// Signature lists a function's name followed by one entry per argument.
// An entry names the accepted types separated by commas, e.g. "str, list".
// A leading "*" marks the argument optional; optional arguments must come
// last.
type Signature []string

var knownTypes = map[string]bool{
	"str":   true,
	"list":  true,
	"int":   true,
	"float": true,
	"bool":  true,
}

// CheckArgs returns an error when args do not satisfy sig.
func CheckArgs(sig Signature, args []contemply.Value) error {
	if len(sig) == 0 {
		return errors.New("empty signature")
	}
	name := sig[0] + "()"
	params := sig[1:]

	required := 0
	optional := false
	for _, p := range params {
		if strings.HasPrefix(p, "*") {
			optional = true
			continue
		}
		if optional {
			return errors.New("After an optional argument only further optional arguments are allowed.")
		}
		required++
	}

	if len(args) < required {
		return fmt.Errorf("%s expects at least %d arguments.", name, required)
	}
	if len(args) > len(params) {
		return fmt.Errorf("%s accepts a maximum of %d arguments", name, len(params))
	}

	for i, arg := range args {
		def := strings.TrimPrefix(params[i], "*")
		ok, err := matchesType(def, arg)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s expected %s as argument number %d", name, def, i+1)
		}
	}
	return nil
}

func matchesType(def string, v contemply.Value) (bool, error) {
	for _, t := range strings.Split(def, ",") {
		t = strings.TrimSpace(t)
		if !knownTypes[t] {
			return false, fmt.Errorf("could not map type definition %q", t)
		}
		if v.Type() == t {
			return true, nil
		}
	}
	return false, nil
}
