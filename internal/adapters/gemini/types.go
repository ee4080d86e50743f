package gemini

// Wire structures for the generative language REST API. Only the fields
// this client reads or writes are declared.

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"fileData,omitempty"`
}

type fileData struct {
	MimeType string `json:"mimeType"`
	FileURI  string `json:"fileUri"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type remoteFile struct {
	Name  string `json:"name"`
	URI   string `json:"uri"`
	State string `json:"state"`
}

type uploadResponse struct {
	File remoteFile `json:"file"`
}

// fileState is the client-side view of a remote upload's lifecycle.
type fileState int

const (
	stateUploading fileState = iota
	stateProcessing
	stateReady
	stateFailed
)

func parseFileState(wire string) fileState {
	switch wire {
	case "ACTIVE":
		return stateReady
	case "FAILED":
		return stateFailed
	case "PROCESSING":
		return stateProcessing
	default:
		return stateUploading
	}
}
