package jbovlaste

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// loginForm is a form holding a password field, scraped from a jbovlaste page.
type loginForm struct {
	action string
	fields url.Values
}

// findLoginForm scans an HTML page for a login form. Relative actions are
// resolved against base. ok is false when the page has no password field.
func findLoginForm(r io.Reader, base *url.URL) (form *loginForm, ok bool, err error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, false, fmt.Errorf("parse html: %w", err)
	}

	doc.Find("form").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Find(`input[type="password"]`).Length() == 0 {
			return true
		}
		action := strings.TrimSpace(s.AttrOr("action", ""))
		target := base
		if action != "" {
			ref, perr := url.Parse(action)
			if perr != nil {
				err = fmt.Errorf("login form action %q: %w", action, perr)
				return false
			}
			target = base.ResolveReference(ref)
		}
		fields := url.Values{}
		s.Find(`input[type="hidden"]`).Each(func(_ int, in *goquery.Selection) {
			if name, has := in.Attr("name"); has && name != "" {
				fields.Set(name, in.AttrOr("value", ""))
			}
		})
		form, ok = &loginForm{action: target.String(), fields: fields}, true
		return false
	})
	if err != nil {
		return nil, false, err
	}
	return form, ok, nil
}
