package dispatch

import "github.com/momentics/wasync-go/api"

// RunEncoders walks the encoder chain in order: each
// encoder whose InputType is assignable from the current object runs and
// replaces it, exactly like the decoder chain but without the
// self-mutation/ABORT machinery a write-side chain never needs.
func RunEncoders(chain []api.Encoder, payload interface{}) (interface{}, error) {
	current := payload
	for _, e := range chain {
		if !assignable(e.InputType(), current) {
			continue
		}
		out, err := e.Encode(current)
		if err != nil {
			return nil, err
		}
		current = out
	}
	return current, nil
}
