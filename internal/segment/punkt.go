package segment

import (
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/data"
	"github.com/neurosnap/sentences/english"
	"golang.org/x/text/language"
)

// punktModels names the trained model shipped for each language.
var punktModels = map[language.Base]string{
	language.MustParseBase("cs"): "czech",
	language.MustParseBase("da"): "danish",
	language.MustParseBase("de"): "german",
	language.MustParseBase("el"): "greek",
	language.MustParseBase("en"): "english",
	language.MustParseBase("es"): "spanish",
	language.MustParseBase("et"): "estonian",
	language.MustParseBase("fi"): "finnish",
	language.MustParseBase("fr"): "french",
	language.MustParseBase("it"): "italian",
	language.MustParseBase("nb"): "norwegian",
	language.MustParseBase("nl"): "dutch",
	language.MustParseBase("no"): "norwegian",
	language.MustParseBase("pl"): "polish",
	language.MustParseBase("pt"): "portuguese",
	language.MustParseBase("sl"): "slovene",
	language.MustParseBase("sv"): "swedish",
	language.MustParseBase("tr"): "turkish",
}

var (
	punktMu    sync.Mutex
	punktCache = map[language.Base]*punkt{}
)

// punkt splits with an unsupervised Punkt model. Tokenizers are loaded
// once per language and shared.
type punkt struct {
	mu        sync.Mutex
	tokenizer *sentences.DefaultSentenceTokenizer
}

func loadPunkt(base language.Base, model string) (*punkt, error) {
	punktMu.Lock()
	defer punktMu.Unlock()
	if p, ok := punktCache[base]; ok {
		return p, nil
	}

	var (
		tokenizer *sentences.DefaultSentenceTokenizer
		err       error
	)
	if model == "english" {
		// adds English word tokenization on top of the trained model
		tokenizer, err = english.NewSentenceTokenizer(nil)
	} else {
		tokenizer, err = trainedTokenizer(model)
	}
	if err != nil {
		return nil, err
	}
	p := &punkt{tokenizer: tokenizer}
	punktCache[base] = p
	return p, nil
}

func trainedTokenizer(model string) (*sentences.DefaultSentenceTokenizer, error) {
	b, err := data.Asset("data/" + model + ".json")
	if err != nil {
		return nil, err
	}
	training, err := sentences.LoadTraining(b)
	if err != nil {
		return nil, err
	}
	return sentences.NewSentenceTokenizer(training), nil
}

func (p *punkt) sentences(text string) []string {
	p.mu.Lock()
	found := p.tokenizer.Tokenize(text)
	p.mu.Unlock()

	out := make([]string, 0, len(found))
	for _, s := range found {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}
