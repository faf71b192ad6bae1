package sender

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestMessage_Validate(t *testing.T) {
	cases := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{"complete", Message{To: "a@example.com", Subject: "s", HTML: "<p>h</p>", Text: "h"}, false},
		{"html only", Message{To: "a@example.com", Subject: "s", HTML: "<p>h</p>"}, false},
		{"text only", Message{To: "a@example.com", Subject: "s", Text: "h"}, false},
		{"missing recipient", Message{Subject: "s", HTML: "<p>h</p>"}, true},
		{"missing subject", Message{To: "a@example.com", HTML: "<p>h</p>"}, true},
		{"missing body", Message{To: "a@example.com", Subject: "s"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestLogSender_AcceptsValidMessage(t *testing.T) {
	s := NewLogSender(zap.NewNop())
	err := s.Send(context.Background(), &Message{To: "a@example.com", Subject: "s", HTML: "<p>h</p>"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestLogSender_RejectsInvalidMessage(t *testing.T) {
	s := NewLogSender(zap.NewNop())
	if err := s.Send(context.Background(), &Message{Subject: "s"}); err == nil {
		t.Fatal("expected validation error")
	}
}
