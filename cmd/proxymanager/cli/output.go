package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// write prints v in the requested format. YAML output goes through the JSON
// form of v so that json tags and raw JSON values are honored.
func write(w io.Writer, format string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	switch format {
	case OutputJSON:
		_, err = fmt.Fprintln(w, string(data))
		return err
	case OutputYAML:
		var generic any
		if err = json.Unmarshal(data, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownOutput, format)
	}
}
