package agent

// PlanInput is the structured planner input distilled from a raw call payload.
// JSON tags match the shape the narrative prompt and demo report consume.
type PlanInput struct {
	UserID      string         `json:"user_id"`
	Personal    PersonalInfo   `json:"personal_info"`
	Financials  map[string]any `json:"financials"`
	Goals       []any          `json:"goals"`
	RiskProfile string         `json:"risk_profile"`
	Insurance   map[string]any `json:"insurance"`
}

// PersonalInfo carries the identity fields gathered during the call.
type PersonalInfo struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Age           int    `json:"age"`
	Occupation    string `json:"occupation"`
	MaritalStatus string `json:"marital_status"`
	Dependents    int    `json:"dependents"`
}

// ParseCallData extracts planner input from the combined platform payload
// (call metadata under "metadata", analysis memory under "memory"). Every
// field is optional; absent values fall back to conservative defaults so a
// degraded payload still yields a usable plan.
func ParseCallData(payload map[string]any) PlanInput {
	meta := subMap(payload, "metadata")
	memory := subMap(payload, "memory")
	personal := subMap(memory, "personal_info")

	input := PlanInput{
		UserID: str(meta, "contactId", ""),
		Personal: PersonalInfo{
			Name:          str(subMap(meta, "metadata"), "name", "User"),
			Phone:         str(meta, "phoneNumber", ""),
			Age:           intVal(personal, "age", 30),
			Occupation:    str(personal, "occupation", ""),
			MaritalStatus: str(personal, "marital_status", "Single"),
			Dependents:    intVal(personal, "dependents", 0),
		},
		RiskProfile: str(memory, "risk_profile", "Moderate"),
	}

	if fin, ok := memory["financials"].(map[string]any); ok {
		input.Financials = fin
	} else {
		input.Financials = map[string]any{
			"income":      map[string]any{"monthly_salary": 0.0, "annual_bonus": 0.0},
			"expenses":    map[string]any{"monthly_fixed": 0.0, "monthly_variable": 0.0},
			"assets":      map[string]any{},
			"liabilities": map[string]any{},
		}
	}

	if goals, ok := memory["goals"].([]any); ok {
		input.Goals = goals
	}

	if ins, ok := memory["insurance"].(map[string]any); ok {
		input.Insurance = ins
	} else {
		input.Insurance = map[string]any{
			"life_insurance":   "None",
			"health_insurance": "None",
		}
	}

	return input
}

func subMap(m map[string]any, key string) map[string]any {
	if sub, ok := m[key].(map[string]any); ok {
		return sub
	}
	return map[string]any{}
}

func str(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return def
}

func num(m map[string]any, key string, def float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

func intVal(m map[string]any, key string, def int) int {
	return int(num(m, key, float64(def)))
}
