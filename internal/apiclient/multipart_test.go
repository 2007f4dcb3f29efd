package apiclient_test

import (
	"collegemate/backend/internal/apiclient"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type part struct {
	name     string
	filename string
	body     string
}

func readParts(t *testing.T, form *apiclient.Form) []part {
	t.Helper()
	body, contentType, err := form.Encode()
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mediaType)

	var parts []part
	r := multipart.NewReader(body, params["boundary"])
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(p)
		require.NoError(t, err)
		parts = append(parts, part{name: p.FormName(), filename: p.FileName(), body: string(data)})
	}
	return parts
}

func TestBuildForm_TitleAndImage(t *testing.T) {
	image := &apiclient.File{Filename: "leak.jpg", ContentType: "image/jpeg", Data: strings.NewReader("JPEGDATA")}

	form, err := apiclient.BuildForm(map[string]any{"title": "a", "image": image}, "image")
	require.NoError(t, err)

	parts := readParts(t, form)
	require.Len(t, parts, 2, "no other keys")
	assert.Equal(t, part{name: "title", body: "a"}, parts[0])
	assert.Equal(t, part{name: "image", filename: "leak.jpg", body: "JPEGDATA"}, parts[1], "file is appended last")
}

func TestBuildForm_FileAppendedLastAfterSortedFields(t *testing.T) {
	resume := &apiclient.File{Filename: "cv.pdf", Data: strings.NewReader("%PDF")}

	form, err := apiclient.BuildForm(map[string]any{
		"resume": resume,
		"phone":  "12345",
		"cgpa":   8.5,
		"branch": "CSE",
	}, "resume")
	require.NoError(t, err)

	parts := readParts(t, form)
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		names = append(names, p.name)
	}
	assert.Equal(t, []string{"branch", "cgpa", "phone", "resume"}, names)
	assert.Equal(t, "8.5", parts[1].body)
}

func TestBuildForm_OptionalFileOmitted(t *testing.T) {
	form, err := apiclient.BuildForm(map[string]any{"title": "a", "image": (*apiclient.File)(nil), "landmark": nil}, "image")
	require.NoError(t, err)

	parts := readParts(t, form)
	require.Len(t, parts, 1)
	assert.Equal(t, "title", parts[0].name)
}

func TestBuildForm_RejectsSecondFile(t *testing.T) {
	_, err := apiclient.BuildForm(map[string]any{
		"image": &apiclient.File{},
		"proof": &apiclient.File{},
	}, "image")
	assert.ErrorIs(t, err, apiclient.ErrFileFieldMisplaced)
}

func TestBuildForm_RejectsNonFileUnderFileField(t *testing.T) {
	_, err := apiclient.BuildForm(map[string]any{"image": "not-a-file"}, "image")
	assert.Error(t, err)
}
