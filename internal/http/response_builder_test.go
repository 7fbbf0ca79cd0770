package http

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "value").
		JSON(map[string]int{"id": 7}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Content-Type"); got != contentTypeJSON {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("X-Custom"); got != "value" {
		t.Errorf("X-Custom = %q", got)
	}
	if got := w.Body.String(); got != `{"id":7}` {
		t.Errorf("Body = %q", got)
	}
}

func TestResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().JSON(math.Inf(1)).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *ResponseBuilder
		code    int
		detail  string
	}{
		{"bad request", BadRequestError("invalid month"), http.StatusBadRequest, "invalid month"},
		{"not found", NotFoundError("budget 9: not found"), http.StatusNotFound, "budget 9: not found"},
		{"internal", InternalServerError(), http.StatusInternalServerError, "internal server error"},
		{"rate limited", TooManyRequestsError(), http.StatusTooManyRequests, "rate limit exceeded, please try again later"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.code {
				t.Errorf("Status code = %d, want %d", w.Code, tt.code)
			}
			var body errorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Detail != tt.detail {
				t.Errorf("detail = %q, want %q", body.Detail, tt.detail)
			}
		})
	}
}

func TestNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	NoContent().Write(w)
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Errorf("NoContent = %d %q", w.Code, w.Body.String())
	}
}

func TestAmountRendering(t *testing.T) {
	tests := []struct {
		in        string
		wantFixed string
		wantExact string
	}{
		{"850", "850.00", "850.00"},
		{"-1150.5", "-1150.50", "-1150.50"},
		{"0.305", "0.31", "0.305"},
		{"0", "0.00", "0.00"},
	}
	for _, tt := range tests {
		d := decimal.RequireFromString(tt.in)
		if got := fixed(d).String(); got != tt.wantFixed {
			t.Errorf("fixed(%s) = %s, want %s", tt.in, got, tt.wantFixed)
		}
		if got := exact(d).String(); got != tt.wantExact {
			t.Errorf("exact(%s) = %s, want %s", tt.in, got, tt.wantExact)
		}
	}
}
