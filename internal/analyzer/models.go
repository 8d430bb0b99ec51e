package analyzer

type RawLink struct {
	URL         string
	Text        string
	Tag         string
	Depth       int
	ElementType string
}

type LinkLevel struct {
	Depth int
	Links []RawLink
}

// LinkLevels is ordered by ascending depth. Depths without links are absent.
type LinkLevels []LinkLevel

// Get returns the links found at depth, or nil.
func (l LinkLevels) Get(depth int) []RawLink {
	for _, lvl := range l {
		if lvl.Depth == depth {
			return lvl.Links
		}
	}
	return nil
}

func (l LinkLevels) Depths() []int {
	depths := make([]int, len(l))
	for i, lvl := range l {
		depths[i] = lvl.Depth
	}
	return depths
}

// TotalLinks counts raw links over all levels.
func (l LinkLevels) TotalLinks() int {
	n := 0
	for _, lvl := range l {
		n += len(lvl.Links)
	}
	return n
}

type Candidate struct {
	URL           string
	NormalizedURL string
	Text          string
	Tag           string
	Path          string
}

type LevelStats struct {
	Depth           int
	TotalLinks      int
	TotalCandidates int
	MatchCount      int
	KeywordRatio    float64
}

type ReasonCode string

const (
	ReasonSocialShare   ReasonCode = "social_share"
	ReasonUnparsable    ReasonCode = "unparsable"
	ReasonFragment      ReasonCode = "fragment"
	ReasonQuery         ReasonCode = "query"
	ReasonFragmentQuery ReasonCode = "fragment_query"
	ReasonKeywordAbsent ReasonCode = "keyword_absent"
	ReasonKeywordIsPath ReasonCode = "keyword_is_path"
)

type Exclusion struct {
	URL    string
	Reason ReasonCode
	Detail string
}

// IsFragment reports whether the URL was dropped for carrying an anchor.
func (e Exclusion) IsFragment() bool {
	return e.Reason == ReasonFragment || e.Reason == ReasonFragmentQuery
}

type LevelReport struct {
	Depth      int
	Stats      *LevelStats // nil when no candidate survived normalization
	Matches    []Candidate
	Exclusions []Exclusion
}

type RankingResult struct {
	Keyword       string
	SelectedLevel int
	Matches       []Candidate
	BestRatio     float64
	Levels        []LevelReport
}

// Found reports whether the selected level has at least one match.
func (r *RankingResult) Found() bool {
	return r != nil && len(r.Matches) > 0
}

func (r *RankingResult) level(depth int) *LevelReport {
	if r == nil {
		return nil
	}
	for i := range r.Levels {
		if r.Levels[i].Depth == depth {
			return &r.Levels[i]
		}
	}
	return nil
}

func (r *RankingResult) Stats(depth int) *LevelStats {
	if lvl := r.level(depth); lvl != nil {
		return lvl.Stats
	}
	return nil
}

func (r *RankingResult) MatchesAt(depth int) []Candidate {
	if lvl := r.level(depth); lvl != nil {
		return lvl.Matches
	}
	return nil
}

func (r *RankingResult) ExclusionsAt(depth int) []Exclusion {
	if lvl := r.level(depth); lvl != nil {
		return lvl.Exclusions
	}
	return nil
}
