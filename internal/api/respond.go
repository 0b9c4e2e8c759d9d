package api

import (
	"encoding/json"
	"io"
	"net/http"
)

// writeJSON encodes a success body.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError emits the terse error shape used across the API:
// {"error": "<message>"} with no internal detail.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeFields decodes a JSON object body into loosely typed fields.
// Numbers are kept as json.Number so field-type validation can tell a
// numeric 3600 from the string "3600". A missing body decodes to an empty
// map so endpoints that take no fields still work.
func decodeFields(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	fields := make(map[string]any)
	err := dec.Decode(&fields)
	if err == io.EOF {
		return fields, nil
	}
	if err != nil {
		return nil, err
	}
	return fields, nil
}
