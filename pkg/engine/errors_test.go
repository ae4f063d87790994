package engine

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/openfroyo/ppactl/pkg/launchpad"
)

func TestClassifyRejection(t *testing.T) {
	alreadyPublished := &launchpad.BadRequestError{
		Message: "kolibri-server 0.16.0 in noble (same version already published in the target archive)",
	}
	obsolete := &launchpad.BadRequestError{
		Message: "Cannot copy to xenial:\nxenial is obsolete and will not accept new uploads.",
	}
	other := &launchpad.BadRequestError{Message: "permission denied"}

	tests := []struct {
		name      string
		err       error
		tolerated []RejectionKind
		want      RejectionOutcome
		wantKind  RejectionKind
	}{
		{"already published tolerated", alreadyPublished, []RejectionKind{RejectionAlreadyPublished}, RejectionIgnored, RejectionAlreadyPublished},
		{"already published not tolerated", alreadyPublished, []RejectionKind{RejectionObsoleteSeries}, RejectionFatal, RejectionAlreadyPublished},
		{"obsolete tolerated", obsolete, []RejectionKind{RejectionObsoleteSeries}, RejectionIgnored, RejectionObsoleteSeries},
		{"obsolete not tolerated", obsolete, nil, RejectionFatal, RejectionObsoleteSeries},
		{"wrapped rejection", fmt.Errorf("sync: %w", alreadyPublished), []RejectionKind{RejectionAlreadyPublished}, RejectionIgnored, RejectionAlreadyPublished},
		{"unknown rejection", other, []RejectionKind{RejectionAlreadyPublished, RejectionObsoleteSeries}, RejectionFatal, ""},
		{"plain error with matching text", errors.New("already published"), []RejectionKind{RejectionAlreadyPublished}, RejectionFatal, ""},
		{"server error", &launchpad.APIError{StatusCode: 500, Body: "already published"}, []RejectionKind{RejectionAlreadyPublished}, RejectionFatal, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, kind := ClassifyRejection(tt.err, tt.tolerated...)
			if got != tt.want {
				t.Errorf("outcome = %s, want %s", got, tt.want)
			}
			if kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", kind, tt.wantKind)
			}
		})
	}
}

func TestWrapRemoteError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantClass ErrorClass
		wantCode  string
	}{
		{"bad request", &launchpad.BadRequestError{Message: "nope"}, ErrorClassPermanent, ErrCodeRejected},
		{"rate limited", &launchpad.APIError{StatusCode: http.StatusTooManyRequests}, ErrorClassThrottled, ErrCodeRateLimited},
		{"not found", &launchpad.APIError{StatusCode: http.StatusNotFound}, ErrorClassPermanent, ErrCodeNotFound},
		{"unavailable", &launchpad.APIError{StatusCode: http.StatusBadGateway}, ErrorClassTransient, ErrCodeUnavailable},
		{"unknown", errors.New("connection reset"), ErrorClassPermanent, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := wrapRemoteError("syncSources", "jammy->noble (Release)", tt.err)
			if e.Class != tt.wantClass || e.Code != tt.wantCode {
				t.Errorf("got %s/%s, want %s/%s", e.Class, e.Code, tt.wantClass, tt.wantCode)
			}
			if !errors.Is(e, tt.err) {
				t.Error("expected wrapped error to unwrap to the original")
			}
			if e.Operation != "syncSources" || e.Resource == "" {
				t.Errorf("missing context: %+v", e)
			}
		})
	}
}

func TestEngineErrorIs(t *testing.T) {
	err := fmt.Errorf("copy: %w", NewPermanentError("rejected", nil).WithCode(ErrCodeRejected))

	if !errors.Is(err, &EngineError{Class: ErrorClassPermanent, Code: ErrCodeRejected}) {
		t.Error("expected match on class and code")
	}
	if errors.Is(err, &EngineError{Class: ErrorClassTransient, Code: ErrCodeRejected}) {
		t.Error("expected no match on different class")
	}
	if !IsPermanent(err) || IsTransient(err) || IsThrottled(err) {
		t.Error("unexpected classification helpers result")
	}
}

func TestArchiveRefString(t *testing.T) {
	ref := ArchiveRef{Owner: "learningequality", Name: "kolibri-proposed"}
	if got := ref.String(); got != "~learningequality/kolibri-proposed" {
		t.Errorf("String() = %q", got)
	}
}
