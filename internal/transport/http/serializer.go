package http

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
)

// sonicSerializer encodes and decodes request and response bodies with sonic
// using encoding/json compatible settings.
type sonicSerializer struct {
	api sonic.API
}

func newSonicSerializer() *sonicSerializer {
	return &sonicSerializer{api: sonic.ConfigStd}
}

func (s *sonicSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := s.api.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (s *sonicSerializer) Deserialize(c echo.Context, i interface{}) error {
	if err := s.api.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body").SetInternal(err)
	}
	return nil
}
