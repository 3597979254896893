package cloudinary

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academy/internal/apperr"
)

func TestSignIsOrderIndependent(t *testing.T) {
	c := New("demo", "key", "secret", "")
	a := c.sign(map[string]string{"timestamp": "1", "folder": "r", "api_key": "key"})
	b := c.sign(map[string]string{"folder": "r", "timestamp": "1"})
	assert.Equal(t, a, b)
	assert.Len(t, a, 40)
}

func TestUploadDocument(t *testing.T) {
	var gotPath string
	var gotFields map[string]string
	var gotFile []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotFields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			gotFields[k] = v[0]
		}
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		gotFile, _ = io.ReadAll(f)
		_ = json.NewEncoder(w).Encode(UploadResult{PublicID: "receipts/REC-1", SecureURL: "https://cdn/x.pdf", ResourceType: "raw"})
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "receipts")
	c.BaseURL = srv.URL
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	res, err := c.UploadDocument(context.Background(), []byte("%PDF-1.3"), "REC-1.pdf", "REC-1")
	require.NoError(t, err)
	assert.Equal(t, "/v1_1/demo/raw/upload", gotPath)
	assert.Equal(t, "https://cdn/x.pdf", res.SecureURL)
	assert.Equal(t, "1700000000", gotFields["timestamp"])
	assert.Equal(t, "REC-1", gotFields["public_id"])
	assert.Equal(t, c.sign(map[string]string{"timestamp": "1700000000", "folder": "receipts", "public_id": "REC-1", "overwrite": "true"}), gotFields["signature"])
	assert.Equal(t, "%PDF-1.3", string(gotFile))
}

func TestUploadDocumentFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.BaseURL = srv.URL
	_, err := c.UploadDocument(context.Background(), []byte("x"), "x.pdf", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestUploadDocumentErrorKinds(t *testing.T) {
	cases := map[int]apperr.Kind{
		http.StatusTooManyRequests:    apperr.RateLimited,
		http.StatusBadGateway:         apperr.Connection,
		http.StatusServiceUnavailable: apperr.Connection,
	}
	for status, kind := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		c := New("demo", "key", "secret", "")
		c.BaseURL = srv.URL
		_, err := c.UploadDocument(context.Background(), []byte("x"), "x.pdf", "")
		srv.Close()
		require.Error(t, err, status)
		assert.Equal(t, kind, apperr.KindOf(err), status)
	}
}

func TestUploadDocumentBadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.BaseURL = srv.URL
	_, err := c.UploadDocument(context.Background(), []byte("x"), "x.pdf", "")
	assert.True(t, apperr.Is(err, apperr.Parse))
}
