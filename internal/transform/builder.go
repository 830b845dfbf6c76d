package transform

import (
	"encoding/json"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// builder accumulates a destination document with sjson. The first error
// sticks and is reported by bytes.
type builder struct {
	doc []byte
	err error
}

func newBuilder() *builder {
	return &builder{doc: []byte(`{}`)}
}

func (b *builder) set(path string, value any) {
	if b.err != nil {
		return
	}
	b.doc, b.err = sjson.SetBytes(b.doc, path, value)
}

// copy sets path to the raw source value, keeping its JSON type. Absent and
// null source values are left out.
func (b *builder) copy(path string, v gjson.Result) {
	if b.err != nil || !v.Exists() || v.Type == gjson.Null {
		return
	}
	b.doc, b.err = sjson.SetRawBytes(b.doc, path, []byte(v.Raw))
}

// copySnake copies every field of obj under prefix, renaming keys to
// snake_case.
func (b *builder) copySnake(prefix string, obj gjson.Result) {
	if !obj.IsObject() {
		return
	}
	obj.ForEach(func(key, value gjson.Result) bool {
		b.copy(prefix+"."+escapePath(strcase.ToSnake(key.String())), value)
		return b.err == nil
	})
}

func (b *builder) bytes() (json.RawMessage, error) {
	if b.err != nil {
		return nil, b.err
	}
	return json.RawMessage(b.doc), nil
}

var pathEscaper = strings.NewReplacer(`.`, `\.`, `*`, `\*`, `?`, `\?`)

func escapePath(key string) string {
	return pathEscaper.Replace(key)
}
