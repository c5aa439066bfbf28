package importer

import (
	"sort"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
)

type Field string

const (
	FieldAttendeeID             Field = "attendeeId"
	FieldName                   Field = "name"
	FieldEmail                  Field = "email"
	FieldPhone                  Field = "phone"
	FieldFullName               Field = "fullName"
	FieldColumn2                Field = "column2"
	FieldOrganization           Field = "organization"
	FieldPreferredTitle         Field = "preferredTitle"
	FieldPositionInOrganization Field = "positionInOrganization"
	FieldRegionOfWork           Field = "regionOfWork"
	FieldPhoneKorean            Field = "phoneKorean"
	FieldKoreanText             Field = "koreanText"
	FieldPositionKorean         Field = "positionKorean"
	FieldEnglishText            Field = "englishText"
	FieldPositionEnglish        Field = "positionEnglish"
)

const (
	scoreExact   = 100
	scoreContain = 80
	scoreToken   = 60
	fuzzyWeight  = 40
	fuzzyCutoff  = 0.6

	defaultPriority = 1
)

// FieldRule describes how one attendee field is recognized among headers.
type FieldRule struct {
	Field    Field
	Label    string
	Keywords []string
	Priority int
}

// DefaultRules is the bilingual keyword table used for uploads.
// Order matters only for logging.
var DefaultRules = []FieldRule{
	{Field: FieldAttendeeID, Label: "Attendee ID", Priority: defaultPriority,
		Keywords: []string{"id", "attendee id", "아이디", "attendee_id", "attendeeid"}},
	{Field: FieldName, Label: "Name", Priority: defaultPriority,
		Keywords: []string{"name", "full name", "fullname", "first name", "last name", "attendee name",
			"이름", "성명", "성함", "성", "참석자명", "참석자", "full_name", "attendee_name", "person_name"}},
	{Field: FieldEmail, Label: "Email", Priority: defaultPriority,
		Keywords: []string{"email", "e-mail", "mail", "email address", "이메일", "메일", "이메일주소",
			"email_addr", "mail_addr", "전자우편", "메일주소", "emailaddress"}},
	{Field: FieldPhone, Label: "Phone", Priority: defaultPriority,
		Keywords: []string{"phone", "mobile", "contact", "tel", "phone number", "번호", "전화", "휴대폰", "폰", "연락처",
			"mobile_phone", "cell", "cellphone", "telephone", "contact_number", "phone_no"}},
	{Field: FieldFullName, Label: "Full Name", Priority: defaultPriority,
		Keywords: []string{"full name", "fullname", "full_name", "이름", "성명"}},
	{Field: FieldColumn2, Label: "Column 2", Priority: defaultPriority,
		Keywords: []string{"열2", "column2", "col2"}},
	{Field: FieldOrganization, Label: "Organization", Priority: defaultPriority,
		Keywords: []string{"organization", "org", "기관", "조직"}},
	{Field: FieldPreferredTitle, Label: "Preferred Title", Priority: defaultPriority,
		Keywords: []string{"preferred title", "title", "선호직함", "직함"}},
	{Field: FieldPositionInOrganization, Label: "Position in Organization", Priority: defaultPriority,
		Keywords: []string{"position in organization", "position", "직위", "직책"}},
	{Field: FieldRegionOfWork, Label: "Region of Work", Priority: defaultPriority,
		Keywords: []string{"region of work", "region", "근무지역", "지역"}},
	{Field: FieldPhoneKorean, Label: "Phone Korean", Priority: defaultPriority,
		Keywords: []string{"번호", "phone korean", "korean phone"}},
	{Field: FieldKoreanText, Label: "Korean Text", Priority: defaultPriority,
		Keywords: []string{"한글", "korean", "한국어"}},
	{Field: FieldPositionKorean, Label: "Position Korean", Priority: defaultPriority,
		Keywords: []string{"직분", "position korean", "korean position"}},
	{Field: FieldEnglishText, Label: "English Text", Priority: defaultPriority,
		Keywords: []string{"영어", "english", "영문"}},
	{Field: FieldPositionEnglish, Label: "Position English", Priority: defaultPriority,
		Keywords: []string{"영어직분", "position english", "english position"}},
}

// Column is a resolved header position.
type Column struct {
	Index  int    `json:"index"`
	Header string `json:"header"`
}

// Mapping is the field to column resolution for one sheet.
type Mapping struct {
	Headers      []string
	NameFallback bool
	columns      map[Field]int
	keys         []string
}

// Index returns the resolved column for f, or -1.
func (m Mapping) Index(f Field) int {
	if i, ok := m.columns[f]; ok {
		return i
	}
	return -1
}

// Column returns the resolved column for f, nil when unresolved.
func (m Mapping) Column(f Field) *Column {
	i := m.Index(f)
	if i < 0 || i >= len(m.Headers) {
		return nil
	}
	return &Column{Index: i, Header: m.Headers[i]}
}

// consumed reports whether header i is bound to any field.
func (m Mapping) consumed(i int) bool {
	for _, idx := range m.columns {
		if idx == i {
			return true
		}
	}
	return false
}

type Matcher struct {
	rules []FieldRule
	log   *zerolog.Logger
}

func NewMatcher(rules []FieldRule, log *zerolog.Logger) *Matcher {
	if rules == nil {
		rules = DefaultRules
	}
	return &Matcher{rules: rules, log: log}
}

type candidate struct {
	index int
	score float64
}

// Match returns the index of the header that best fits rule, or -1.
func (m *Matcher) Match(headers []string, rule FieldRule) int {
	if len(rule.Keywords) == 0 {
		m.log.Warn().Str("field", string(rule.Field)).Msg("no keywords configured for field")
		return -1
	}

	keywords := make([]string, 0, len(rule.Keywords))
	for _, k := range rule.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}

	var results []candidate
	for i, h := range headers {
		header := strings.ToLower(strings.TrimSpace(h))
		if header == "" {
			continue
		}
		if score := scoreHeader(header, keywords, rule.Priority); score > 0 {
			results = append(results, candidate{index: i, score: score})
		}
	}
	if len(results) == 0 {
		return -1
	}

	sort.SliceStable(results, func(a, b int) bool { return results[a].score > results[b].score })
	best := results[0]
	m.log.Debug().
		Str("field", string(rule.Field)).
		Str("header", headers[best.index]).
		Float64("score", best.score).
		Msg("column matched")
	return best.index
}

func scoreHeader(header string, keywords []string, priority int) float64 {
	for _, k := range keywords {
		if header == k {
			return float64(scoreExact + priority)
		}
	}
	for _, k := range keywords {
		if strings.Contains(header, k) {
			return float64(scoreContain + priority)
		}
	}
	tokens := tokenize(header)
	for _, k := range keywords {
		for _, t := range tokens {
			if strings.Contains(k, t) || strings.Contains(t, k) {
				return float64(scoreToken + priority)
			}
		}
	}

	best := 0.0
	for _, k := range keywords {
		if sim := similarity(header, k); sim > fuzzyCutoff && sim*fuzzyWeight > best {
			best = sim * fuzzyWeight
		}
	}
	return best
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	})
}

// similarity is 1 - levenshtein(a, b) / len(longer), measured in runes.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longer := max(len(ra), len(rb))
	if longer == 0 {
		return 1
	}
	return float64(longer-levenshtein(ra, rb)) / float64(longer)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1]
				continue
			}
			cur[j] = 1 + min(prev[j-1], prev[j], cur[j-1])
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// Resolve matches every rule against headers. When no header looks like a
// name, column 0 is used instead and NameFallback is set. Email is never
// guessed positionally.
func (m *Matcher) Resolve(headers []string) Mapping {
	mapping := Mapping{
		Headers: headers,
		columns: make(map[Field]int, len(m.rules)),
		keys:    headerKeys(headers),
	}
	for _, rule := range m.rules {
		if idx := m.Match(headers, rule); idx >= 0 {
			mapping.columns[rule.Field] = idx
		}
	}

	if mapping.Index(FieldName) < 0 && len(headers) > 0 {
		mapping.columns[FieldName] = 0
		mapping.NameFallback = true
		m.log.Warn().Str("header", headers[0]).Msg("no name column detected, using first column as name")
	}
	return mapping
}
