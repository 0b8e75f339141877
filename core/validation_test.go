package core

import (
	"errors"
	"testing"
)

func TestValidateKnowledgeRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  *KnowledgeRecord
		wantErr error
	}{
		{
			name: "valid github record",
			record: &KnowledgeRecord{
				Content: "# Bug\nsomething broke",
				Link:    "https://github.com/honojs/hono/issues/1",
				Kind:    SourceKindGitHub,
			},
		},
		{
			name: "valid record with ID 0 and no vector",
			record: &KnowledgeRecord{
				Id:      0,
				Content: "hello",
				Link:    "https://discord.com/channels/1/2/3",
				Kind:    SourceKindDiscord,
				Vector:  nil,
			},
		},
		{
			name:    "nil record",
			record:  nil,
			wantErr: ErrInvalidKnowledgeRecord,
		},
		{
			name: "empty content",
			record: &KnowledgeRecord{
				Link: "https://example.com",
				Kind: SourceKindDocs,
			},
			wantErr: ErrEmptyContent,
		},
		{
			name: "whitespace content",
			record: &KnowledgeRecord{
				Content: " \n\t ",
				Link:    "https://example.com",
				Kind:    SourceKindDocs,
			},
			wantErr: ErrEmptyContent,
		},
		{
			name: "empty link",
			record: &KnowledgeRecord{
				Content: "hello",
				Kind:    SourceKindDocs,
			},
			wantErr: ErrEmptyLink,
		},
		{
			name: "unknown kind",
			record: &KnowledgeRecord{
				Content: "hello",
				Link:    "https://example.com",
				Kind:    SourceKind("slack"),
			},
			wantErr: ErrInvalidSourceKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKnowledgeRecord(tt.record)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateKnowledgeRecord() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateKnowledgeRecord() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidKnowledgeRecord) {
				t.Errorf("ValidateKnowledgeRecord() error = %v, should wrap ErrInvalidKnowledgeRecord", err)
			}
		})
	}
}

func TestValidateMessage(t *testing.T) {
	if err := ValidateMessage(&Message{ID: "1", Timestamp: "not a time"}); err != nil {
		t.Errorf("ValidateMessage() unexpected error = %v", err)
	}
	if err := ValidateMessage(nil); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("ValidateMessage(nil) error = %v, want ErrInvalidMessage", err)
	}
	if err := ValidateMessage(&Message{}); !errors.Is(err, ErrEmptyMessageID) {
		t.Errorf("ValidateMessage() error = %v, want ErrEmptyMessageID", err)
	}
}

func TestValidateSourceKind(t *testing.T) {
	for _, kind := range SourceKinds {
		if err := ValidateSourceKind(kind); err != nil {
			t.Errorf("ValidateSourceKind(%q) unexpected error = %v", kind, err)
		}
	}
	if err := ValidateSourceKind(""); !errors.Is(err, ErrInvalidSourceKind) {
		t.Errorf("ValidateSourceKind(\"\") error = %v, want ErrInvalidSourceKind", err)
	}
}
