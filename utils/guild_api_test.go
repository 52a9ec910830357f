package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func restErr(status, code int) error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: "test"},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		notFound  bool
		forbidden bool
		transient bool
	}{
		{"unknown member", restErr(404, discordgo.ErrCodeUnknownMember), true, false, false},
		{"unknown ban", restErr(404, discordgo.ErrCodeUnknownBan), true, false, false},
		{"plain 404", restErr(404, 0), true, false, false},
		{"missing permissions", restErr(403, discordgo.ErrCodeMissingPermissions), false, true, false},
		{"server error", restErr(502, 0), false, false, true},
		{"rate limited", restErr(429, 0), false, false, true},
		{"timeout", fmt.Errorf("request: %w", context.DeadlineExceeded), false, false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := classify(tc.err)
			if got := errors.Is(err, ErrNotFound); got != tc.notFound {
				t.Fatalf("ErrNotFound = %v, want %v (%v)", got, tc.notFound, err)
			}
			if got := errors.Is(err, ErrForbidden); got != tc.forbidden {
				t.Fatalf("ErrForbidden = %v, want %v (%v)", got, tc.forbidden, err)
			}
			if got := IsTransient(err); got != tc.transient {
				t.Fatalf("IsTransient = %v, want %v", got, tc.transient)
			}
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	if classify(nil) != nil || IsTransient(nil) {
		t.Fatalf("nil error must stay nil and not be transient")
	}
}

func TestMemberUpdate_Empty(t *testing.T) {
	if !(MemberUpdate{}).Empty() {
		t.Fatalf("zero update should be empty")
	}
	nick := "n"
	if (MemberUpdate{Nick: &nick}).Empty() {
		t.Fatalf("update with nick should not be empty")
	}
}
