package nifcloud

import (
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Output is the parsed response of an operation.
type Output struct {
	Result map[string]any
}

// RequestID returns the request id reported by the service, or an empty string.
func (o *Output) RequestID() string {
	md, ok := o.Result["ResponseMetadata"].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := md["RequestId"].(string)
	return id
}

// Decode copies the result into v, a pointer to a struct or a map.
// Struct fields match result keys case insensitively, or through a json tag.
func (o *Output) Decode(v any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           v,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return dec.Decode(o.Result)
}
