package models

// Strategy identifies which extraction path handles a URL.
type Strategy int

const (
	// StrategyGenericHTML parses Open Graph / Twitter Card / <title> tags.
	StrategyGenericHTML Strategy = iota
	StrategyDOI                  // Crossref lookup by DOI
	StrategyArxiv                // arXiv abstract page (abs or pdf URL)
	StrategyRawPDF               // PDF payload parsed for info dict + text
)

func (s Strategy) String() string {
	switch s {
	case StrategyDOI:
		return "doi"
	case StrategyArxiv:
		return "arxiv"
	case StrategyRawPDF:
		return "pdf"
	default:
		return "html"
	}
}
