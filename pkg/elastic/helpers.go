package elastic

import (
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v7/esapi"
)

// responseError turns an error response into an error carrying the elastic
// error type and reason when the body has them.
func responseError(op string, res *esapi.Response) error {
	var e map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
		return fmt.Errorf("failed to %s: [%s]", op, res.Status())
	}
	if em, ok := e["error"].(map[string]interface{}); ok {
		return fmt.Errorf("failed to %s: [%s] %s: %s", op, res.Status(), em["type"], em["reason"])
	}
	return fmt.Errorf("failed to %s: [%s] %v", op, res.Status(), e["error"])
}
