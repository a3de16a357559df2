package models

import (
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

func TestPrescriptionSessionTags(t *testing.T) {
	typ := reflect.TypeOf(PrescriptionSession{})
	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "Seq", "autoIncrement")
	assertGormTag(t, typ, "FileName", "not null")
	assertGormTag(t, typ, "CanonicalAnalysis", "type:text")
	assertGormTag(t, typ, "EditedText", "type:text")
}

func TestReminderTags(t *testing.T) {
	typ := reflect.TypeOf(Reminder{})
	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "MedicineName", "not null")
	assertGormTag(t, typ, "Time", "size:5")
}

func TestChatMessageTags(t *testing.T) {
	typ := reflect.TypeOf(ChatMessage{})
	assertGormTag(t, typ, "SessionID", "index")
	assertGormTag(t, typ, "Role", "not null")
	assertGormTag(t, typ, "Content", "not null")
}
