package web

import (
	"net/http"

	"ms-invoicing/internal/alert"

	"github.com/gorilla/securecookie"
)

const flashCookie = "invoicing_flash"

// Flashes carries one alert across a redirect in a signed cookie. The next
// rendered page shows it as a blocking browser alert.
type Flashes struct {
	codec  *securecookie.SecureCookie
	secure bool
}

func NewFlashes(hashKey []byte, secure bool) *Flashes {
	codec := securecookie.New(hashKey, nil)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(300)
	return &Flashes{codec: codec, secure: secure}
}

func (f *Flashes) Set(w http.ResponseWriter, a alert.Alert) error {
	value, err := f.codec.Encode(flashCookie, a)
	if err != nil {
		return err
	}
	http.SetCookie(w, f.cookie(value, 300))
	return nil
}

// Pop returns the pending alert, if any, and clears it.
func (f *Flashes) Pop(w http.ResponseWriter, r *http.Request) (*alert.Alert, bool) {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil, false
	}
	http.SetCookie(w, f.cookie("", -1))

	var a alert.Alert
	if err := f.codec.Decode(flashCookie, c.Value, &a); err != nil {
		return nil, false
	}
	return &a, true
}

func (f *Flashes) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     flashCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
