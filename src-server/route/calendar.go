package route

import (
	"encoding/json"
	"net/http"
	"time"

	"duocal/src-server/occurrence"
	"duocal/src-server/planner"
	"duocal/src-server/utils"

	"cloud.google.com/go/civil"
)

func Calendar(muxer *http.ServeMux, as *utils.AppState, p *planner.Planner) {
	type CreateRuleRespBody struct {
		ID string `json:"id"`
	}

	// create a new rule, the success response is the rule ID
	muxer.HandleFunc("POST /calendar/rules", ViewerMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			var reqBody planner.CreateRuleRequest
			if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid request body"))
				return
			}

			rule, err := p.CreateRule(r.Context(), reqBody, viewerLocation(r))
			if err != nil {
				writeError(w, err)
				return
			}

			respBodyJson, err := json.Marshal(CreateRuleRespBody{ID: rule.ID})
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, respBodyJson)
		}))

	type ListRespBody struct {
		Occurrences []occurrence.Instance `json:"occurrences"`
		Truncated   []string              `json:"truncated,omitempty"`
		Capped      []string              `json:"capped,omitempty"`
	}

	// list occurrences overlapping [from, to), both optional RFC3339 instants
	muxer.HandleFunc("GET /calendar/{couple_id}/occurrences", ViewerMiddleware(as,
		func(w http.ResponseWriter, r *http.Request) {
			var from, to time.Time
			for _, bound := range []struct {
				name string
				dst  *time.Time
			}{{"from", &from}, {"to", &to}} {
				raw := r.URL.Query().Get(bound.name)
				if raw == "" {
					continue
				}
				t, err := time.Parse(time.RFC3339, raw)
				if err != nil {
					w.WriteHeader(http.StatusBadRequest)
					w.Write([]byte("Invalid " + bound.name + " date, use RFC3339"))
					return
				}
				*bound.dst = t.UTC()
			}

			result, err := p.List(r.Context(), r.PathValue("couple_id"), viewerLocation(r), from, to)
			if err != nil {
				writeError(w, err)
				return
			}

			respBodyJson, err := json.Marshal(ListRespBody{
				Occurrences: result.Instances,
				Truncated:   result.Truncated,
				Capped:      result.Capped,
			})
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, respBodyJson)
		}))

	type EditReqBody struct {
		Scope       occurrence.Scope `json:"scope"`
		NominalDate string           `json:"nominal_date"`
		occurrence.SeriesPatch
	}

	type ResolutionRespBody struct {
		RuleID      string              `json:"rule_id"`
		NominalDate *civil.Date         `json:"nominal_date,omitempty"`
		Mutation    occurrence.Mutation `json:"mutation"`
	}
	resolutionJson := func(res occurrence.Resolution) ([]byte, error) {
		body := ResolutionRespBody{RuleID: res.RuleID, Mutation: res.Mutation}
		if res.NominalDate.IsValid() {
			body.NominalDate = &res.NominalDate
		}
		return json.Marshal(body)
	}

	// edit one occurrence or its whole series
	muxer.HandleFunc("PATCH /calendar/occurrences/{id}", func(w http.ResponseWriter, r *http.Request) {
		var reqBody EditReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		nominalDate, ok := parseNominalDate(w, reqBody.NominalDate)
		if !ok {
			return
		}

		res, err := p.Edit(r.Context(), planner.EditRequest{
			InstanceID:  r.PathValue("id"),
			NominalDate: nominalDate,
			Scope:       reqBody.Scope,
		}, reqBody.SeriesPatch)
		if err != nil {
			writeError(w, err)
			return
		}

		respBodyJson, err := resolutionJson(res)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, respBodyJson)
	})

	// delete one occurrence or its whole series: ?scope=this_only|all_events&nominal_date=YYYY-MM-DD
	muxer.HandleFunc("DELETE /calendar/occurrences/{id}", func(w http.ResponseWriter, r *http.Request) {
		nominalDate, ok := parseNominalDate(w, r.URL.Query().Get("nominal_date"))
		if !ok {
			return
		}

		res, err := p.Delete(r.Context(), planner.EditRequest{
			InstanceID:  r.PathValue("id"),
			NominalDate: nominalDate,
			Scope:       occurrence.Scope(r.URL.Query().Get("scope")),
		})
		if err != nil {
			writeError(w, err)
			return
		}

		respBodyJson, err := resolutionJson(res)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, respBodyJson)
	})
}

func parseNominalDate(w http.ResponseWriter, raw string) (civil.Date, bool) {
	if raw == "" {
		return civil.Date{}, true
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("Invalid nominal_date, use YYYY-MM-DD"))
		return civil.Date{}, false
	}
	return d, true
}
