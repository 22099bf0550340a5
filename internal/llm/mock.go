package llm

import "context"

// MockModel is the model name reported by the mock provider.
const MockModel = "mock"

// MockAnswer is returned when no real LLM is configured or every call failed.
const MockAnswer = "## Mock answer (no LLM configured)\n" +
	"LLM not available (no GEMINI_API_KEY / OPENAI_API_KEY or calls failed). " +
	"This is a placeholder."

// Mock is an offline provider that always answers with MockAnswer.
type Mock struct{}

// NewMock returns the offline provider.
func NewMock() *Mock { return &Mock{} }

func (*Mock) Name() string { return MockModel }

func (*Mock) Chat(ctx context.Context, _ []Message, _ *ChatOptions) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrContextCanceled
	}
	return &Response{Content: MockAnswer, Model: MockModel}, nil
}

func (*Mock) Heartbeat(context.Context) error { return nil }

func (*Mock) ModelAvailable(_ context.Context, model string) (bool, error) {
	return model == MockModel, nil
}
