package vision

import "context"

// Mock is a test double for the vision Client interface. It records calls
// and returns canned responses.
type Mock struct {
	Analysis       *SceneAnalysis
	Classification *QueryClassification
	Answer         string
	People         []string
	PeopleContext  string
	Err            error

	AnalyzeCalls  int
	ClassifyCalls []string
	VQACalls      []string
	ExtractCalls  []string
}

func (m *Mock) AnalyzeImage(ctx context.Context, image []byte) (*SceneAnalysis, error) {
	m.AnalyzeCalls++
	return m.Analysis, m.Err
}

func (m *Mock) ClassifyQuery(ctx context.Context, query string) (*QueryClassification, error) {
	m.ClassifyCalls = append(m.ClassifyCalls, query)
	return m.Classification, m.Err
}

func (m *Mock) AnswerVisualQuestion(ctx context.Context, image []byte, question string) (string, error) {
	m.VQACalls = append(m.VQACalls, question)
	return m.Answer, m.Err
}

func (m *Mock) ExtractPeople(ctx context.Context, transcript string) ([]string, string, error) {
	m.ExtractCalls = append(m.ExtractCalls, transcript)
	return m.People, m.PeopleContext, m.Err
}
