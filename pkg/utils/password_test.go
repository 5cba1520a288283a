package utils

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Sup3rSecret!")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "Sup3rSecret!" {
		t.Fatal("HashPassword() returned the plaintext")
	}

	if !CheckPassword(hash, "Sup3rSecret!") {
		t.Error("CheckPassword() = false for the correct password")
	}
	if CheckPassword(hash, "sup3rsecret!") {
		t.Error("CheckPassword() = true for a different password")
	}
	if CheckPassword("not-a-bcrypt-hash", "Sup3rSecret!") {
		t.Error("CheckPassword() = true for a malformed hash")
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Abcdef12", false},
		{"too short", "Ab1defg", true},
		{"no uppercase", "abcdef12", true},
		{"no lowercase", "ABCDEF12", true},
		{"no digit", "Abcdefgh", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
			}
		})
	}
}
