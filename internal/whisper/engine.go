package whisper

import "context"

// TranscriptionRequest carries one transcription job.
type TranscriptionRequest struct {
	AudioPath string
	ModelPath string
	Language  string
}

// Engine converts an audio file into a transcript.
type Engine interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (string, error)
}

// OutputPath returns where the engine writes its structured output for
// a given audio file.
func OutputPath(audioPath string) string {
	return audioPath + ".json"
}
