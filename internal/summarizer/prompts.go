package summarizer

import "fmt"

// SystemPrompt frames every summary request.
const SystemPrompt = `You are going to receive a transcript from a YouTube video. Your task is to process the transcript according to a user's request.

Here are some guidelines for your responses:
    - answer in markdown format
    - don't use first level headings`

// styleConstraint keeps custom answers from talking about the raw material.
const styleConstraint = `When you refer to the content, only refer to it as "the video". Never mention transcripts, captions or any processing of the video.`

const defaultRequest = `Generate a concise and coherent summary that accurately captures the key points, main topics, and essential information of the video.
Focus on clarity, relevance, and brevity, ensuring the summary is easy to understand and provides a clear overview of the video's content.
The summary should be in whole sentences and contain no more than 300 words.
Additionally, extract key insights from the video for contributing to better understanding, emphasizing the main points and providing actionable advice.

Here is the transcript, delimited by ---

---
%s
---

Your response should strictly adhere to this schema:

## <short title for the video, consisting of maximum five words>

<your summary>

## Key insights

<unnumbered list of key insights>`

const customRequest = `%s

Here is the transcript, delimited by ---

---
%s
---

%s`

// UserPrompt builds the request for transcript. An empty instruction asks for the default summary.
func UserPrompt(transcript, instruction string) string {
	if instruction == "" {
		return fmt.Sprintf(defaultRequest, transcript)
	}
	return fmt.Sprintf(customRequest, instruction, transcript, styleConstraint)
}

// preprocessSystemPrompt asks for a cleaned up copy of an auto-generated excerpt.
const preprocessSystemPrompt = `You are going to receive excerpts from an automatically generated video transcript. Your task is to convert every excerpt into structured text. Ensure that the content of the excerpts remains unchanged. Add appropriate punctuation, correct any grammatical errors, remove filler words and divide the text into logical paragraphs, separating them with a single new line. The final output should be in plain text and only include the modified transcript excerpt without any prelude.`

func preprocessPrompt(number int, excerpt string) string {
	return fmt.Sprintf("Here is part %d from the original transcript, delimited by ---\n\n---\n%s\n---", number, excerpt)
}
