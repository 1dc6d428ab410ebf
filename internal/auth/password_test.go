package auth

import "testing"

func TestValidatePassword(t *testing.T) {
	policy := DefaultPasswordPolicy()

	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{"valid", "CorrectHorse9", true},
		{"too short", "Ab1", false},
		{"no uppercase", "correcthorse9", false},
		{"no lowercase", "CORRECTHORSE9", false},
		{"no number", "CorrectHorseBattery", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := policy.ValidatePassword(tt.password)
			if result.Valid != tt.valid {
				t.Errorf("ValidatePassword(%q).Valid = %v, want %v (errors: %v)",
					tt.password, result.Valid, tt.valid, result.Errors)
			}
			if !result.Valid && len(result.Errors) == 0 {
				t.Error("invalid result must carry at least one error message")
			}
		})
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("CorrectHorse9")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "CorrectHorse9" {
		t.Fatal("hash must not equal the plaintext password")
	}
	if err := VerifyPassword("CorrectHorse9", hash); err != nil {
		t.Errorf("VerifyPassword with correct password: %v", err)
	}
	if err := VerifyPassword("wrong", hash); err == nil {
		t.Error("VerifyPassword with wrong password should fail")
	}
}
