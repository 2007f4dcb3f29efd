package models_test

import (
	"collegemate/backend/internal/models"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSessionBeforeCreate_GeneratesUUID verifies that the BeforeCreate hook generates a valid UUID.
func TestSessionBeforeCreate_GeneratesUUID(t *testing.T) {
	session := &models.Session{Fingerprint: "abc", Role: models.RoleStudent}

	assert.Empty(t, session.ID, "Session ID should be empty before BeforeCreate")

	err := session.BeforeCreate(nil) // nil *gorm.DB is acceptable for this hook

	assert.NoError(t, err)
	parsed, parseErr := uuid.Parse(session.ID)
	assert.NoError(t, parseErr, "Session ID must be a valid UUID string")
	assert.NotEqual(t, uuid.Nil, parsed)
}

func TestSessionBeforeCreate_PreservesExistingID(t *testing.T) {
	existingID := uuid.New().String()
	session := &models.Session{ID: existingID, Fingerprint: "def"}

	assert.NoError(t, session.BeforeCreate(nil))
	assert.Equal(t, existingID, session.ID, "BeforeCreate should preserve existing ID")
}

// TestSessionStructTags catches accidental tag removal during refactoring.
func TestSessionStructTags(t *testing.T) {
	sessionType := reflect.TypeOf(models.Session{})

	idField, found := sessionType.FieldByName("ID")
	assert.True(t, found)
	assert.Contains(t, idField.Tag.Get("gorm"), "primaryKey")

	fpField, found := sessionType.FieldByName("Fingerprint")
	assert.True(t, found)
	assert.Contains(t, fpField.Tag.Get("gorm"), "uniqueIndex")
	assert.Equal(t, "-", fpField.Tag.Get("json"), "fingerprint must never be serialized")

	logType := reflect.TypeOf(models.MutationLog{})
	tagsField, found := logType.FieldByName("Tags")
	assert.True(t, found)
	assert.Contains(t, tagsField.Tag.Get("gorm"), "type:text[]")
}

func TestUserRef_AcceptsIDOrDocument(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want models.UserRef
	}{
		{name: "bare id", raw: `"u1"`, want: models.UserRef{ID: "u1"}},
		{name: "populated", raw: `{"_id":"u2","name":"Asha","role":"admin"}`, want: models.UserRef{ID: "u2", Name: "Asha", Role: models.RoleAdmin}},
		{name: "null", raw: `null`, want: models.UserRef{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ref models.UserRef
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &ref))
			assert.Equal(t, tt.want, ref)
		})
	}
}

func TestComplaint_DecodesPopulatedRefs(t *testing.T) {
	raw := `{"_id":"c1","title":"No water","category":"hostel","status":"in-progress",
		"createdBy":"s1","assignedTo":{"_id":"a1","name":"Warden"}}`

	var c models.Complaint
	require.NoError(t, json.Unmarshal([]byte(raw), &c))

	assert.Equal(t, models.ComplaintInProgress, c.Status)
	assert.True(t, c.CreatedBy.Is("s1"))
	assert.Equal(t, "Warden", c.AssignedTo.Name)
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, models.RoleAdmin, models.ParseRole("admin"))
	assert.Equal(t, models.RoleSuperAdmin, models.ParseRole("superadmin"))
	assert.Equal(t, models.RoleStudent, models.ParseRole("student"))
	assert.Equal(t, models.RoleStudent, models.ParseRole(""))
	assert.Equal(t, models.RoleStudent, models.ParseRole("root"))
	assert.True(t, models.RoleSuperAdmin.IsStaff())
	assert.False(t, models.RoleStudent.IsStaff())
}
