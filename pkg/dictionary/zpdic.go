package dictionary

// DefaultAlphabetOrder is the Lojban collation used by ZpDIC.
const DefaultAlphabetOrder = ".'aAbBcCdDeEfFgGiIjJkKlLmMnNoOpPrRsStTuUvVxXyYzZ"

// ZpDICInfo is the ZpDIC sidecar configuration serialised under "zpdic".
type ZpDICInfo struct {
	AlphabetOrder          string   `json:"alphabetOrder,omitempty"`
	PlainInformationTitles []string `json:"plainInformationTitles,omitempty"`
	InformationTitleOrder  []string `json:"informationTitleOrder,omitempty"`
	DefaultWord            *Word    `json:"defaultWord,omitempty"`
}

// NewZpDICInfo returns the ZpDIC settings for a target language.
func NewZpDICInfo(lang string) ZpDICInfo {
	info := ZpDICInfo{
		AlphabetOrder:          DefaultAlphabetOrder,
		PlainInformationTitles: []string{"username", "rafsi"},
	}
	if lang == "ja" {
		info.PlainInformationTitles = append(info.PlainInformationTitles, "読み方", "語呂合わせ")
	}
	return info
}

// Clone returns a deep copy.
func (z ZpDICInfo) Clone() ZpDICInfo {
	out := z
	out.PlainInformationTitles = append([]string(nil), z.PlainInformationTitles...)
	out.InformationTitleOrder = append([]string(nil), z.InformationTitleOrder...)
	if z.DefaultWord != nil {
		w := z.DefaultWord.Clone()
		out.DefaultWord = &w
	}
	return out
}
