package verification

import "regexp"

// failureKeywords are scanned as case-insensitive substrings of the call
// transcript. Any hit marks the verification as failed. Keep this list flat
// and reviewable; ordering does not matter.
var failureKeywords = []string{
	"verification failed",
	"not verified",
	"wrong name",
	"wrong phone",
	"incorrect name",
	"incorrect phone",
	"name doesn't match",
	"phone doesn't match",
	"verification unsuccessful",
	"cannot verify",
	"unable to verify",
	"doesn't match",
	"not matching",
	"sorry, that's not correct",
	"that's incorrect",
	"i cannot proceed",
	"i need to end this call",
	"i'll have to hang up",
	"ending the call",
	"that's not the name",
	"that's not the phone number",
	"the name provided doesn't match",
	"the phone number doesn't match",
	"mismatch",
	"identity confirmation failed",
	"that doesn't match",
	"that is not correct",
	"that's not right",
	"i'm sorry, that's not",
}

// failurePatterns catch phrasal variants the plain substrings miss.
var failurePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)sorry.*(can't|cannot).*verify`),
	regexp.MustCompile(`(?i)unable.*to.*verify`),
	regexp.MustCompile(`(?i)verification.*(failed|unsuccessful)`),
	regexp.MustCompile(`(?i)(name|phone).*(doesn't|does not|do not).*match`),
	regexp.MustCompile(`(?i)(name|phone).*provided.*(doesn't|does not|do not).*match`),
	regexp.MustCompile(`(?i)identity.*(confirmation|verification).*(failed|unsuccessful)`),
	regexp.MustCompile(`(?i)(that's|that is).*not.*(correct|right|the).*(name|phone)`),
	regexp.MustCompile(`(?i)(that|this).*(doesn't|does not|do not).*match`),
	regexp.MustCompile(`(?i)(that|this).*is.*not.*(correct|right)`),
}

// Prompts the agent uses when asking the caller to confirm their identity.
var (
	nameQuestionPattern  = regexp.MustCompile(`(?i)(?:may i|can you|please).*(?:confirm|verify).*your.*(?:name|full name)`)
	phoneQuestionPattern = regexp.MustCompile(`(?i)(?:can you|please).*(?:confirm|verify).*phone.*number`)
)

// Lead-ins for extracting the caller's spoken answer from the transcript.
var (
	nameAnswerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:my name is|i'm|it's|this is|i am|call me)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`),
		regexp.MustCompile(`(?i)(?:confirm|verify).*your.*(?:name|full name).*?([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`),
	}
	phoneAnswerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:it's|it is|the number is|my number is|phone is)\s*([+\d\s\-()]+)`),
		regexp.MustCompile(`(?i)(?:confirm|verify).*phone.*number.*?([+\d\s\-()]+)`),
	}
)

// mismatchAcknowledgment detects the agent explicitly acknowledging that the
// supplied identity does not match.
var mismatchAcknowledgment = regexp.MustCompile(`(?i)(?:acknowledge|noted|i see|i understand).*(?:that|the).*(?:name|phone).*(?:doesn't|does not|is different|is not|not match)`)
