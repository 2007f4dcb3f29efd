package apiclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"
)

// File is a binary attachment for a multipart operation.
type File struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

// Form is a multipart body: text fields in order, then at most one file.
type Form struct {
	Fields    []FormField
	FileField string
	File      *File
}

type FormField struct {
	Name  string
	Value string
}

var ErrFileFieldMisplaced = errors.New("apiclient: file value under a non-file key")

// BuildForm turns a payload into a Form. Every key except fileField is copied
// as a text field in sorted key order; the value under fileField, when it is a
// non-nil *File, becomes the single file part. Nil values are skipped.
func BuildForm(payload map[string]any, fileField string) (*Form, error) {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	form := &Form{FileField: fileField}
	for _, k := range keys {
		v := payload[k]
		if k == fileField {
			f, ok := v.(*File)
			if !ok && v != nil {
				return nil, fmt.Errorf("apiclient: field %q must be *File, got %T", k, v)
			}
			form.File = f
			continue
		}
		switch val := v.(type) {
		case nil:
			continue
		case *File:
			return nil, fmt.Errorf("%w: %q", ErrFileFieldMisplaced, k)
		case string:
			form.Fields = append(form.Fields, FormField{Name: k, Value: val})
		case fmt.Stringer:
			form.Fields = append(form.Fields, FormField{Name: k, Value: val.String()})
		default:
			form.Fields = append(form.Fields, FormField{Name: k, Value: fmt.Sprint(val)})
		}
	}
	return form, nil
}

// Encode writes the form as multipart/form-data and returns the body together
// with its Content-Type (boundary included).
func (f *Form) Encode() (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	for _, field := range f.Fields {
		if err := w.WriteField(field.Name, field.Value); err != nil {
			return nil, "", err
		}
	}

	if f.File != nil && f.FileField != "" {
		part, err := w.CreatePart(filePartHeader(f.FileField, f.File))
		if err != nil {
			return nil, "", err
		}
		if f.File.Data != nil {
			if _, err := io.Copy(part, f.File.Data); err != nil {
				return nil, "", fmt.Errorf("apiclient: copy %s: %w", f.FileField, err)
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func filePartHeader(field string, f *File) textproto.MIMEHeader {
	filename := f.Filename
	if filename == "" {
		filename = field
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)
	return h
}
