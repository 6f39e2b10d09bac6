package jbovlaste

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cogas/jbovlaste-otmize/pkg/dictionary"
)

// Langs are the export languages otmize knows how to build.
var Langs = []string{"en", "ja", "jbo", "en-simple"}

// ErrUnknownLang is returned for a language outside Langs.
var ErrUnknownLang = errors.New("unknown language")

// CheckLang returns ErrUnknownLang when lang is not supported.
func CheckLang(lang string) error {
	if !slices.Contains(Langs, lang) {
		return fmt.Errorf("%w %q (want one of %s)", ErrUnknownLang, lang, strings.Join(Langs, ", "))
	}
	return nil
}

// NewWord converts a valsi into an OTM-JSON word.
func NewWord(v Valsi) dictionary.Word {
	w := dictionary.NewWord(v.DefinitionID, v.Word)

	title := v.Type
	if v.Selmaho != "" {
		title += ": " + v.Selmaho
	}
	w.AddTranslation(title, v.Definition)

	if v.Unofficial {
		w.AddTag("unofficial")
	}
	if v.Notes != "" {
		w.AddContent("notes", v.Notes)
	}
	if len(v.Keywords) > 0 {
		lines := make([]string, len(v.Keywords))
		for i, k := range v.Keywords {
			lines[i] = fmt.Sprintf("[%s]: %s", k.Place, withSense(k.Word, k.Sense))
		}
		w.AddContent("keyword", strings.Join(lines, "\n"))
	}
	if len(v.Glosswords) > 0 {
		lines := make([]string, len(v.Glosswords))
		for i, g := range v.Glosswords {
			lines[i] = "- " + withSense(g.Word, g.Sense)
		}
		w.AddContent(dictionary.GlosswordField, strings.Join(lines, "\n"))
	}
	if len(v.Rafsi) > 0 {
		w.AddContent("rafsi", strings.Join(v.Rafsi, "   "))
	}
	w.AddContent("username", v.User.Username)
	return w
}

func withSense(word, sense string) string {
	if sense == "" {
		return word
	}
	return word + "; " + sense
}

// NewDictionary converts valsis into a jbo -> lang dictionary generated on date.
func NewDictionary(valsis []Valsi, lang string, date time.Time) *dictionary.Dictionary {
	d := dictionary.New("jbo", lang)
	d.Words = make([]dictionary.Word, 0, len(valsis))
	for _, v := range valsis {
		d.Append(NewWord(v))
	}
	d.Meta.SetGeneratedDate(date)
	zp := dictionary.NewZpDICInfo(lang)
	d.ZpDIC = &zp
	return d
}

// OutputName is the OTM-JSON file name of lang.
func OutputName(lang string) string {
	return "jbo-" + lang + "_otm.json"
}
