package model

import "testing"

func TestFullName(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{"both names", User{FirstName: "Jane", LastName: "Doe", Username: "jane"}, "Jane Doe"},
		{"first only", User{FirstName: "Jane", Username: "jane"}, "Jane"},
		{"last only", User{LastName: "Doe", Username: "jane"}, "Doe"},
		{"username fallback", User{Username: "janedoe"}, "janedoe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.FullName(); got != tt.want {
				t.Errorf("FullName() = %q, want %q", got, tt.want)
			}
		})
	}
}
