// Package analyze turns extracted filing text into a structured analysis
// record using an LLM, chunking oversized documents and merging the partial
// results deterministically.
package analyze

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/sells-group/filing-monitor/internal/model"
)

const analysisSystemPrompt = `You are an analyst reviewing regulatory filings submitted to an energy regulator. Extract structured information from the filing text. Respond with a single valid JSON object and nothing else, using this schema:
{
  "summary": "<2-4 sentence summary of what the filing is and what it seeks>",
  "entities": [{"name": "<entity name>", "type": "<company|person|agency|facility|location|other>", "role": "<role in the filing, if stated>"}],
  "relationships": [{"subject": "<entity>", "predicate": "<relationship>", "object": "<entity>", "context": "<supporting detail>"}],
  "classification": {"primary_type": "<application|compliance|correspondence|decision|report|tolls_and_tariffs|other>", "tags": ["<tag>"], "confidence": <0-100>, "justification": "<one sentence>"},
  "key_facts": ["<concrete fact with figures, dates, or locations>"]
}
Rules: only include entities and facts stated in the text. Confidence is an integer from 0 to 100. Do not wrap the JSON in markdown fences.`

const filingContextPrompt = `Filing context: %s, submitted %s by %s. Declared type: %s. Documents: %d.`

const analysisUserPrompt = `Analyze the following regulatory filing text.

%s

%s`

const chunkUserPrompt = `Analyze part %d of %d of a regulatory filing. Extract everything visible in this part; other parts are analyzed separately.

%s

%s`

// PromptVersion identifies the prompt templates used to produce a record.
// Stored with each analysis so stale results can be found after a prompt
// change.
var PromptVersion = func() string {
	sum := sha256.Sum256([]byte(analysisSystemPrompt + filingContextPrompt + analysisUserPrompt + chunkUserPrompt))
	return hex.EncodeToString(sum[:])[:12]
}()

// filingContext renders the filing's registry metadata for the prompt so the
// model can anchor entities and dates it sees in the text.
func filingContext(f *model.Filing) string {
	if f == nil {
		return ""
	}
	date := "on an unknown date"
	if f.Date != nil {
		date = f.Date.Format("2006-01-02")
	}
	applicant := f.Applicant
	if applicant == "" {
		applicant = "an unknown applicant"
	}
	filingType := f.FilingType
	if filingType == "" {
		filingType = "unspecified"
	}
	return fmt.Sprintf(filingContextPrompt, f.FilingID, date, applicant, filingType, len(f.Documents))
}

func buildPrompt(f *model.Filing, text string) string {
	return analysisSystemPrompt + "\n\n" + fmt.Sprintf(analysisUserPrompt, filingContext(f), text)
}

func buildChunkPrompt(f *model.Filing, text string, part, total int) string {
	return analysisSystemPrompt + "\n\n" + fmt.Sprintf(chunkUserPrompt, part, total, filingContext(f), text)
}
