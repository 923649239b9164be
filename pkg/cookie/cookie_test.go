package cookie_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anamartins/folio/pkg/cookie"
)

var (
	secretA = strings.Repeat("a", 32)
	secretB = strings.Repeat("b", 32)
)

func roundtrip(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return req
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires a secret", func(t *testing.T) {
		t.Parallel()
		_, err := cookie.New(nil)
		assert.ErrorIs(t, err, cookie.ErrNoSecret)

		_, err = cookie.New([]string{""})
		assert.ErrorIs(t, err, cookie.ErrNoSecret)
	})

	t.Run("rejects short secrets", func(t *testing.T) {
		t.Parallel()
		_, err := cookie.New([]string{"too-short"})
		assert.ErrorIs(t, err, cookie.ErrSecretTooShort)
	})
}

func TestPlainCookies(t *testing.T) {
	t.Parallel()

	jar, err := cookie.New([]string{secretA})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	jar.Set(rec, "theme", "dark")

	value, err := jar.Get(roundtrip(rec), "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", value)

	_, err = jar.Get(roundtrip(rec), "missing")
	assert.ErrorIs(t, err, cookie.ErrCookieNotFound)
}

func TestSignedCookies(t *testing.T) {
	t.Parallel()

	t.Run("roundtrip", func(t *testing.T) {
		t.Parallel()
		jar, err := cookie.New([]string{secretA})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		jar.SetSigned(rec, "uid", "user-1")

		value, err := jar.GetSigned(roundtrip(rec), "uid")
		require.NoError(t, err)
		assert.Equal(t, "user-1", value)
	})

	t.Run("tampering is detected", func(t *testing.T) {
		t.Parallel()
		jar, err := cookie.New([]string{secretA})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "uid", Value: "dXNlci0y|forged-signature"})

		_, err = jar.GetSigned(req, "uid")
		assert.Error(t, err)
	})

	t.Run("rotated key still verifies", func(t *testing.T) {
		t.Parallel()
		oldJar, err := cookie.New([]string{secretA})
		require.NoError(t, err)
		rec := httptest.NewRecorder()
		oldJar.SetSigned(rec, "uid", "user-1")

		newJar, err := cookie.New([]string{secretB, secretA})
		require.NoError(t, err)
		value, err := newJar.GetSigned(roundtrip(rec), "uid")
		require.NoError(t, err)
		assert.Equal(t, "user-1", value)
	})
}

func TestEncryptedCookies(t *testing.T) {
	t.Parallel()

	t.Run("roundtrip hides plaintext", func(t *testing.T) {
		t.Parallel()
		jar, err := cookie.New([]string{secretA})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		require.NoError(t, jar.SetEncrypted(rec, "token", "secret-value"))
		assert.NotContains(t, rec.Header().Get("Set-Cookie"), "secret-value")

		value, err := jar.GetEncrypted(roundtrip(rec), "token")
		require.NoError(t, err)
		assert.Equal(t, "secret-value", value)
	})

	t.Run("garbage fails to decrypt", func(t *testing.T) {
		t.Parallel()
		jar, err := cookie.New([]string{secretA})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: "bm90LWVuY3J5cHRlZA=="})

		_, err = jar.GetEncrypted(req, "token")
		assert.ErrorIs(t, err, cookie.ErrDecryptionFailed)
	})

	t.Run("rotated key still decrypts", func(t *testing.T) {
		t.Parallel()
		oldJar, err := cookie.New([]string{secretA})
		require.NoError(t, err)
		rec := httptest.NewRecorder()
		require.NoError(t, oldJar.SetEncrypted(rec, "token", "secret-value"))

		newJar, err := cookie.New([]string{secretB, secretA})
		require.NoError(t, err)
		value, err := newJar.GetEncrypted(roundtrip(rec), "token")
		require.NoError(t, err)
		assert.Equal(t, "secret-value", value)
	})
}

func TestFlashCookies(t *testing.T) {
	t.Parallel()

	jar, err := cookie.New([]string{secretA})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, jar.SetFlash(rec, "notice", map[string]string{"msg": "saved"}))

	var out map[string]string
	readRec := httptest.NewRecorder()
	require.NoError(t, jar.GetFlash(readRec, roundtrip(rec), "notice", &out))
	assert.Equal(t, "saved", out["msg"])

	// The read response must delete the flash cookie.
	deleted := false
	for _, c := range readRec.Result().Cookies() {
		if strings.HasPrefix(c.Name, "__flash_") && c.MaxAge < 0 {
			deleted = true
		}
	}
	assert.True(t, deleted, "flash cookie must be consumed on read")
}
