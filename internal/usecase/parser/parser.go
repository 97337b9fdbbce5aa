package parser

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dinkup/dinkup-backend/internal/domain"
)

// EmailPayload is the transaction-ingestion call delivered by the upstream
// mail adapter. The transport is responsible for MIME extraction; this core
// accepts whatever text it is given and degrades gracefully when it is
// empty or markup-laden.
type EmailPayload struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Text      string `json:"text,omitempty"`
	HTML      string `json:"html,omitempty"`
	Date      string `json:"date,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}

// ParsedTransaction is the structured result of parsing one payload
type ParsedTransaction struct {
	Type            domain.TransactionType
	Amount          decimal.Decimal
	SenderName      string
	RecipientName   string
	Note            *string
	CorrelationTag  *string
	EmailSubject    string
	EmailFrom       string
	TransactionDate *time.Time
}

var (
	// A single leading forward/reply prefix; stripped once, not recursively
	subjectPrefixRe = regexp.MustCompile(`(?i)^(fwd|fw|re):\s*`)

	amountPattern = `\$?([\d,]+\.?\d*)`

	youPaidRe      = regexp.MustCompile(`(?i)You paid (.+?) ` + amountPattern)
	paidYouRe      = regexp.MustCompile(`(?i)(.+?) paid you ` + amountPattern)
	youRequestedRe = regexp.MustCompile(`(?i)You requested ` + amountPattern + ` from (.+)`)
	requestsRe     = regexp.MustCompile(`(?i)(.+?) requests ` + amountPattern)

	quotedSpanRe = regexp.MustCompile(`"([^"]+)"`)
	notePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Note:\s*(.+?)(?:\n|$)`),
		regexp.MustCompile(`(?i)Message:\s*(.+?)(?:\n|$)`),
		regexp.MustCompile(`(?i)for\s+"([^"]+)"`),
	}
	taggedLineRe = regexp.MustCompile(`(?i)#(dinkup|pay|payment|session)[-_]`)

	vocabTagRe = regexp.MustCompile(`(?i)#(dinkup|pay|payment|session)[-_][\w-]+`)
	uuidTagRe  = regexp.MustCompile(`(?i)#[\w-]*[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}`)
)

// maxNoteLength rejects extraction candidates that are too long to be an
// authored payment note.
const maxNoteLength = 500

// Parse classifies the email subject into one of the four transaction
// shapes and extracts the counterparty, amount, note and correlation tag.
// Returns ok=false when the subject matches none of the shapes; such
// emails are not transactions and are discarded, which is a filtering
// outcome, not an error.
func Parse(payload EmailPayload) (*ParsedTransaction, bool) {
	body := payload.Text
	if body == "" && payload.HTML != "" {
		body = StripHTML(payload.HTML)
	}

	subject := CleanSubject(payload.Subject)

	var (
		txType        domain.TransactionType
		amountStr     string
		senderName    string
		recipientName string
	)

	if m := youPaidRe.FindStringSubmatch(subject); m != nil {
		txType = domain.TransactionTypePaymentSent
		senderName = domain.AccountHolderName
		recipientName = cleanName(m[1])
		amountStr = m[2]
	} else if m := paidYouRe.FindStringSubmatch(subject); m != nil {
		txType = domain.TransactionTypePaymentReceived
		senderName = cleanName(m[1])
		recipientName = domain.AccountHolderName
		amountStr = m[2]
	} else if m := youRequestedRe.FindStringSubmatch(subject); m != nil {
		txType = domain.TransactionTypeRequestSent
		senderName = domain.AccountHolderName
		recipientName = cleanName(m[2])
		amountStr = m[1]
	} else if m := requestsRe.FindStringSubmatch(subject); m != nil {
		txType = domain.TransactionTypeRequestReceived
		senderName = cleanName(m[1])
		recipientName = domain.AccountHolderName
		amountStr = m[2]
	} else {
		return nil, false
	}

	amount, err := ParseAmount(amountStr)
	if err != nil {
		return nil, false
	}

	// Full payload dump as a last-resort extraction source, mirroring what
	// the mail adapter would have delivered on the wire
	rawDump, _ := json.Marshal(payload)

	note := extractNote(body)
	if note == nil {
		note = extractNote(payload.Subject)
	}
	if note == nil {
		note = extractNote(string(rawDump))
	}

	tag := firstTag(body, stringOrEmpty(note), payload.Subject, string(rawDump))

	return &ParsedTransaction{
		Type:            txType,
		Amount:          amount,
		SenderName:      senderName,
		RecipientName:   recipientName,
		Note:            note,
		CorrelationTag:  tag,
		EmailSubject:    payload.Subject,
		EmailFrom:       payload.From,
		TransactionDate: parseDate(payload.Date),
	}, true
}

// CleanSubject strips a single leading forward/reply prefix from a subject
// line. Applied exactly once per parse call; "Fwd: Re: Fw: ..." keeps its
// inner prefixes.
func CleanSubject(subject string) string {
	return strings.TrimSpace(subjectPrefixRe.ReplaceAllString(subject, ""))
}

func cleanName(name string) string {
	return strings.TrimSpace(subjectPrefixRe.ReplaceAllString(name, ""))
}

// ParseAmount parses a currency amount, removing thousands separators.
// Cents are optional.
func ParseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
}

// extractNote pulls a free-text note out of one source, trying an ordered
// set of strategies; the first non-garbage hit wins
func extractNote(source string) *string {
	if IsGarbage(source) {
		return nil
	}

	// Strategy 1: first quoted span
	if m := quotedSpanRe.FindStringSubmatch(source); m != nil {
		if len(m[1]) < maxNoteLength && !IsGarbage(m[1]) {
			note := strings.TrimSpace(m[1])
			return &note
		}
	}

	// Strategy 2: labeled note patterns
	for _, pattern := range notePatterns {
		if m := pattern.FindStringSubmatch(source); m != nil && !IsGarbage(m[1]) {
			note := strings.TrimSpace(m[1])
			return &note
		}
	}

	// Strategy 3: first line carrying a correlation tag
	for _, line := range strings.Split(source, "\n") {
		if !strings.Contains(line, "#") {
			continue
		}
		if taggedLineRe.MatchString(line) && len(line) < maxNoteLength {
			note := strings.TrimSpace(line)
			return &note
		}
	}

	return nil
}

// ExtractTag finds an embedded correlation tag: a token with one of the
// known tag prefixes, or a token ending in a UUID-shaped value. Returns the
// full token including the leading '#', or nil.
func ExtractTag(text string) *string {
	if m := vocabTagRe.FindString(text); m != "" {
		return &m
	}
	if m := uuidTagRe.FindString(text); m != "" {
		return &m
	}
	return nil
}

func firstTag(sources ...string) *string {
	for _, source := range sources {
		if tag := ExtractTag(source); tag != nil {
			return tag
		}
	}
	return nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

// parseDate is best-effort; provenance survives in the raw payload either way
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
