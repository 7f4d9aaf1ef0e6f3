package inputval

import "testing"

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"user.name@example.com", true},
		{"user+tag@example.com", true},
		{"user@subdomain.example.com", true},
		{"a@b.co", true},
		{"user@localhost", true},

		{"", false},
		{"   ", false},
		{"user", false},
		{"user@", false},
		{"@example.com", false},
		{".user@example.com", false},
		{"user.@example.com", false},
		{"user..name@example.com", false},
		{"user@.example.com", false},
		{"user@example..com", false},
		{"User Name <user@example.com>", false},
		{"user @example.com", false},
		{"user@exam ple.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := IsValidEmail(tt.email); got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestIsValidHTTPURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com", true},
		{"http://localhost:8080/path", true},
		{"ftp://example.com", false},
		{"example.com", false},
		{"", false},
		{"https://", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := IsValidHTTPURL(tt.url); got != tt.want {
				t.Errorf("IsValidHTTPURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestIsValidObjectID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"507f1f77bcf86cd799439011", true},
		{"  507f1f77bcf86cd799439011  ", true},
		{"", false},
		{"507f1f77bcf86cd79943901", false},
		{"507f1f77bcf86cd79943901g", false},
		{"not-a-valid-id", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := IsValidObjectID(tt.id); got != tt.want {
				t.Errorf("IsValidObjectID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	type signup struct {
		Name  string `validate:"required,max=10" label:"Full name"`
		Email string `validate:"required,emailaddr" label:"Email address"`
	}

	tests := []struct {
		name       string
		input      signup
		wantErrors bool
		wantFirst  string
	}{
		{name: "valid input", input: signup{Name: "John", Email: "john@example.com"}},
		{name: "missing name", input: signup{Email: "john@example.com"}, wantErrors: true, wantFirst: "Full name is required."},
		{name: "name too long", input: signup{Name: "VeryLongNameThatExceedsLimit", Email: "john@example.com"}, wantErrors: true, wantFirst: "Full name must be at most 10 characters."},
		{name: "invalid email", input: signup{Name: "John", Email: "not-an-email"}, wantErrors: true, wantFirst: "A valid email address is required."},
		{name: "missing both", input: signup{}, wantErrors: true, wantFirst: "Full name is required."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.input)
			if result.HasErrors() != tt.wantErrors {
				t.Fatalf("HasErrors = %v, want %v (%s)", result.HasErrors(), tt.wantErrors, result.All())
			}
			if tt.wantErrors && result.First() != tt.wantFirst {
				t.Errorf("First() = %q, want %q", result.First(), tt.wantFirst)
			}
		})
	}
}

func TestValidate_CustomRules(t *testing.T) {
	type eventInput struct {
		Skills    []string `validate:"dive,skill" label:"Required skills"`
		StartTime string   `validate:"omitempty,clock" label:"Start time"`
		Needed    int      `validate:"gte=1,lte=10000" label:"Volunteers needed"`
	}
	type typeInput struct {
		Type string `validate:"required,accounttype" label:"Account type"`
	}

	if res := Validate(eventInput{Skills: []string{"cooking", "Medical"}, StartTime: "09:30", Needed: 3}); res.HasErrors() {
		t.Errorf("valid event input has errors: %s", res.All())
	}
	if res := Validate(eventInput{Skills: []string{"juggling"}, Needed: 1}); !res.HasErrors() {
		t.Error("unknown skill should fail")
	}
	if res := Validate(eventInput{StartTime: "9am", Needed: 1}); !res.HasErrors() {
		t.Error("bad clock value should fail")
	}
	res := Validate(eventInput{Needed: 0})
	if res.First() != "Volunteers needed must be at least 1." {
		t.Errorf("First() = %q", res.First())
	}

	if res := Validate(typeInput{Type: "organizer"}); res.HasErrors() {
		t.Errorf("organizer should be valid: %s", res.All())
	}
	if res := Validate(typeInput{Type: "admin"}); !res.HasErrors() {
		t.Error("admin is not a self-service account type")
	}
}

func TestResult_All(t *testing.T) {
	r := &Result{}
	if r.All() != "" || r.First() != "" {
		t.Error("empty result should render empty strings")
	}
	r.Errors = []FieldError{{Message: "Error 1"}, {Message: "Error 2"}}
	if r.All() != "Error 1; Error 2" {
		t.Errorf("All() = %q", r.All())
	}
	if r.First() != "Error 1" {
		t.Errorf("First() = %q", r.First())
	}
}
