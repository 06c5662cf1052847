package assistant

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultDurationMonths = 3
	DefaultDailyMinutes   = 30
	DefaultTaskMinutes    = 30
)

var (
	goalPrefixRe = regexp.MustCompile(`(?i)\b(?:create|add|new|start|set)\b(?:\s+(?:up|me|a|an|new|my|the))*\s+goals?\b(?:\s*:|\s+(?:to|of|called|named|for)\b)?\s*`)
	taskPrefixRe = regexp.MustCompile(`(?i)\b(?:create|add|new|start|set)\b(?:\s+(?:up|me|a|an|new|my|the))*\s+tasks?\b(?:\s*:|\s+(?:to|called|named)\b)?\s*`)

	completePhraseRe   = regexp.MustCompile(`(?i)\b(?:complete|done|finish|finished\s+with)\s+task\b(?:\s*:|\s+(?:called|named)\b)?\s*`)
	deleteGoalPhraseRe = regexp.MustCompile(`(?i)\b(?:delete|remove)\b(?:\s+(?:the|my|a|an))*\s+goals?\b(?:\s*:|\s+(?:called|named)\b)?\s*`)
	deleteTaskPhraseRe = regexp.MustCompile(`(?i)\b(?:delete|remove)\b(?:\s+(?:the|my|a|an))*\s+tasks?\b(?:\s*:|\s+(?:called|named)\b)?\s*`)
	deleteVerbRe       = regexp.MustCompile(`(?i)\b(?:delete|remove)\b`)

	monthsClauseRe  = regexp.MustCompile(`(?i)\s*\b(?:(?:in|for|over|within|during)\s+)?\d+\s*months?\b`)
	hoursClauseRe   = regexp.MustCompile(`(?i)\s*\b(?:(?:for|at)\s+)?(?:\d+\s*(?:hours?|hrs?|h)\b|an?\s+hour\b)(?:\s+(?:a|per|each|every)\s+day\b|\s+daily\b|\s*/\s*day\b)?`)
	minutesClauseRe = regexp.MustCompile(`(?i)\s*\b(?:(?:for|at)\s+)?\d+\s*(?:minutes?|mins?)\b(?:\s+(?:a|per|each|every)\s+day\b|\s+daily\b|\s*/\s*day\b)?`)
	dueClauseRe     = regexp.MustCompile(`(?i)\s*\b(?:(?:due|on|by|for)\s+)?(?:tomorrow|today|next[_ ]week|\d{4}-\d{2}-\d{2})\b`)
	goalLinkRe      = regexp.MustCompile(`(?i)\s*\b(?:for|under|towards?|linked\s+to)\s+(?:the\s+|my\s+)?(.+?)\s+goal\b`)

	monthsRe      = regexp.MustCompile(`(\d+)\s*months?`)
	hoursRe       = regexp.MustCompile(`(\d+)\s*(?:hours?|hrs?|h)\b`)
	minutesRe     = regexp.MustCompile(`(\d+)\s*min`)
	nextWeekRe    = regexp.MustCompile(`\bnext[_ ]week\b`)
	literalDateRe = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	leadingFiller = regexp.MustCompile(`(?i)^(?:(?:a|an|the|my|new|to)\s+)+`)
)

// danglers are connective words left at the end of a title once trailing
// clauses are removed ("Learn Kotlin in" from "Learn Kotlin in 6 months").
var danglers = map[string]bool{
	"and": true, "in": true, "for": true, "with": true, "at": true, "by": true,
	"on": true, "due": true, "over": true, "within": true, "during": true, "to": true,
}

// goalTitle strips the command prefix and the duration and daily-time clauses.
func goalTitle(text string) string {
	rest := afterPrefix(text, goalPrefixRe, createWordRe, goalWordRe)
	rest = monthsClauseRe.ReplaceAllString(rest, "")
	rest = hoursClauseRe.ReplaceAllString(rest, "")
	rest = minutesClauseRe.ReplaceAllString(rest, "")
	return upperFirst(tidy(rest))
}

// taskTitle strips the command prefix and the due, minutes and goal-link
// clauses, returning the title and the linked goal name, if any.
func taskTitle(text string) (string, string) {
	rest := afterPrefix(text, taskPrefixRe, createWordRe, taskWordRe)
	rest = dueClauseRe.ReplaceAllString(rest, "")
	rest = minutesClauseRe.ReplaceAllString(rest, "")
	var goal string
	if m := goalLinkRe.FindStringSubmatchIndex(rest); m != nil {
		goal = tidy(rest[m[2]:m[3]])
		rest = rest[:m[0]] + rest[m[1]:]
	}
	return upperFirst(tidy(rest)), goal
}

// afterPrefix returns the text following the command prefix. When the words
// are not adjacent ("create a fitness goal") it drops the first verb and noun instead.
func afterPrefix(text string, prefix, verb, noun *regexp.Regexp) string {
	if loc := prefix.FindStringIndex(text); loc != nil {
		return text[loc[1]:]
	}
	return dropFirst(dropFirst(text, verb), noun)
}

func dropFirst(text string, re *regexp.Regexp) string {
	loc := re.FindStringIndex(strings.ToLower(text))
	if loc == nil || len(strings.ToLower(text)) != len(text) {
		return text
	}
	return text[:loc[0]] + " " + text[loc[1]:]
}

func remainderAfter(text string, phrase *regexp.Regexp) string {
	loc := phrase.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	if after := tidy(text[loc[1]:]); after != "" {
		return after
	}
	return tidy(text[:loc[0]])
}

func deleteTitle(text string, phrase, noun *regexp.Regexp) string {
	if title := remainderAfter(text, phrase); title != "" {
		return title
	}
	return tidy(dropFirst(dropFirst(text, deleteVerbRe), noun))
}

// tidy collapses whitespace and trims quotes, punctuation, leading fillers
// and dangling connectives.
func tidy(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	for {
		before := s
		s = strings.Trim(s, " \t\"'“”‘’.,;:!?-")
		s = leadingFiller.ReplaceAllString(s, "")
		if i := strings.LastIndexByte(s, ' '); i >= 0 && danglers[strings.ToLower(s[i+1:])] {
			s = s[:i]
		} else if danglers[strings.ToLower(s)] {
			s = ""
		}
		if s == before {
			return s
		}
	}
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func durationMonths(lower string) int {
	return firstInt(monthsRe, lower, DefaultDurationMonths)
}

// dailyMinutes reads "N hours" (N*60, default one hour) or "N min", defaulting to 30.
func dailyMinutes(lower string) int {
	if strings.Contains(lower, "hour") {
		return firstInt(hoursRe, lower, 1) * 60
	}
	if strings.Contains(lower, "min") {
		return firstInt(minutesRe, lower, DefaultDailyMinutes)
	}
	return DefaultDailyMinutes
}

func taskMinutes(lower string) int {
	return firstInt(minutesRe, lower, DefaultTaskMinutes)
}

func dueDate(lower string) DueDate {
	switch {
	case strings.Contains(lower, "tomorrow"):
		return DueDate{Kind: DueTomorrow}
	case strings.Contains(lower, "today"):
		return DueDate{Kind: DueToday}
	case nextWeekRe.MatchString(lower):
		return DueDate{Kind: DueNextWeek}
	}
	if m := literalDateRe.FindStringSubmatch(lower); m != nil {
		if _, err := time.Parse(dateLayout, m[1]); err == nil {
			return DueDate{Kind: DueOn, Date: m[1]}
		}
	}
	return DueDate{Kind: DueToday}
}

// firstInt returns the first capture of re as a positive int, or def.
func firstInt(re *regexp.Regexp, s string, def int) int {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return def
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return def
	}
	return n
}
