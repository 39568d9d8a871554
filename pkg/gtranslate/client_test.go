package gtranslate

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/translate_a/single", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "gtx", q.Get("client"))
		assert.Equal(t, "nl", q.Get("sl"))
		assert.Equal(t, "en", q.Get("tl"))
		assert.Equal(t, "Halfvolle melk", q.Get("q"))
		fmt.Fprint(w, `[[["Semi-skimmed milk","Halfvolle melk",null,null,10]],null,"nl"]`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	out, err := c.Translate(context.Background(), "Halfvolle melk", "nl", "en")
	require.NoError(t, err)
	assert.Equal(t, "Semi-skimmed milk", out)
}

func TestTranslateJoinsSegments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[[["Fresh ","Verse ",null],["chicken","kip",null]],null,"nl"]`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	out, err := c.Translate(context.Background(), "Verse kip", "nl", "en")
	require.NoError(t, err)
	assert.Equal(t, "Fresh chicken", out)
}

func TestTranslateRetriesTransientStatus(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `[[["Milk","Melk",null]],null,"nl"]`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	out, err := c.Translate(context.Background(), "Melk", "nl", "en")
	require.NoError(t, err)
	assert.Equal(t, "Milk", out)
	assert.Equal(t, 2, attempts)
}

func TestTranslateNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.Translate(context.Background(), "Melk", "nl", "en")
	assert.Error(t, err)
}

func TestTranslateMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.Translate(context.Background(), "Melk", "nl", "en")
	assert.Error(t, err)
}
