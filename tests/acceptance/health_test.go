package acceptance

import (
	"net/http"
)

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (s *Suite) TestHealthEndpoint() {
	resp, err := http.Get(s.BaseURL + "/health")
	s.Require().NoError(err, "Failed to make request")

	s.Equal(http.StatusOK, resp.StatusCode, "Expected status 200")

	health := decodeBody[healthResponse](s, resp)
	s.Equal("pass", health.Status)
	s.Equal(map[string]string{"postgres": "pass", "redis": "pass"}, health.Checks)
}

func (s *Suite) TestSessionSignedOutWithoutLogin() {
	resp, err := http.Get(s.BaseURL + "/api/v1/session")
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	current := decodeBody[map[string]any](s, resp)
	s.Equal("signed_out", current["state"])
	s.Nil(current["user"])
}

func (s *Suite) TestTrendingWords() {
	resp, err := http.Get(s.BaseURL + "/api/v1/words/trending?limit=3")
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	trending := decodeBody[map[string]any](s, resp)
	s.EqualValues(3, trending["count"])
}
