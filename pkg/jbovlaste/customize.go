package jbovlaste

import (
	"context"
	"fmt"

	"github.com/cogas/jbovlaste-otmize/pkg/dictionary"
	"github.com/cogas/jbovlaste-otmize/pkg/ponjo"
	"github.com/cogas/jbovlaste-otmize/pkg/relation"
)

// Options selects the post-processing applied by Customize.
type Options struct {
	// NoDollar strips "$" from the first definition.
	NoDollar bool
	// KeepGloss leaves glosswords as a content instead of turning them into
	// a "gloss" translation.
	KeepGloss bool
	// AddRelations recomputes relations from notes.
	AddRelations bool
	// Relationizer runs the relation pass; nil uses the defaults.
	Relationizer *relation.Relationizer
}

// Customize returns a post-processed copy of d. Japanese dictionaries get
// their notes cleaned up first. d is not modified.
func Customize(ctx context.Context, d *dictionary.Dictionary, opts Options) (*dictionary.Dictionary, error) {
	lang := d.Meta.Lang.To
	words := make([]dictionary.Word, len(d.Words))
	for i, src := range d.Words {
		w := src.Clone()
		if lang == "ja" {
			ponjo.Tweak(&w)
		}
		if opts.NoDollar {
			w.DeleteDollar()
		}
		if !opts.KeepGloss {
			if glosses := w.Glosswords(); len(glosses) > 0 {
				w.AddTranslation("gloss", glosses...)
				w.Contents = w.Contents.Remove(dictionary.GlosswordField)
			}
		}
		words[i] = w
	}
	out := d.WithWords(words)

	if !opts.AddRelations {
		return out, nil
	}
	r := relation.NewRelationizer()
	if opts.Relationizer != nil {
		r = opts.Relationizer
	}
	if lang == "ja" && len(r.ExtraFields) == 0 {
		rc := *r
		rc.ExtraFields = []string{ponjo.RelatedWords}
		r = &rc
	}
	out, err := r.Relationize(ctx, out)
	if err != nil {
		return nil, fmt.Errorf("relationize %s: %w", lang, err)
	}
	return out, nil
}
