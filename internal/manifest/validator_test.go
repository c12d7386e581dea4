package manifest

import "testing"

func TestValidate_Valid(t *testing.T) {
	result, err := Validate([]byte(`
name: cassandra
version: "2.1"
description: wide-column store
files:
  - config.yaml
`))
	if err != nil {
		t.Fatal(err)
	}
	if !result.Valid {
		t.Errorf("expected valid, got issues: %+v", result.Issues)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	result, err := Validate([]byte("description: no name or version\n"))
	if err != nil {
		t.Fatal(err)
	}
	if result.Valid {
		t.Fatal("expected invalid")
	}
	if len(result.Issues) == 0 {
		t.Fatal("expected issues")
	}
}

func TestValidate_BadNamePattern(t *testing.T) {
	result, err := Validate([]byte("name: \"../evil\"\nversion: \"1.0\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if result.Valid {
		t.Fatal("expected name pattern violation")
	}
}

func TestValidate_UnknownField(t *testing.T) {
	result, err := Validate([]byte("name: a\nversion: \"1.0\"\nsprockets: 3\n"))
	if err != nil {
		t.Fatal(err)
	}
	if result.Valid {
		t.Fatal("expected unknown field rejection")
	}
}

func TestValidateFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "manifest.yaml", "name: a\nversion: \"1.0\"\n")
	result, err := ValidateFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Valid {
		t.Errorf("expected valid, got %+v", result.Issues)
	}
}
