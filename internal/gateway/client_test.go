package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func testServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithHTTP(srv.URL, srv.Client())
}

func TestAnalyze_Success(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" {
			t.Errorf("path = %s, want /analyze", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		json.NewEncoder(w).Encode(Analysis{
			Medications: []Medication{{Name: "Metformin", Dosage: "500mg", Instruction: "After meals"}},
			Advice:      "Drink plenty of water.",
		})
	})

	got, err := c.Analyze(context.Background(), []byte("fake-image"), "rx.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Medications) != 1 || got.Medications[0].Name != "Metformin" {
		t.Errorf("medications = %+v", got.Medications)
	}
	if got.Advice != "Drink plenty of water." {
		t.Errorf("advice = %q", got.Advice)
	}
}

func TestAnalyze_ServiceError(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(serviceError{Detail: "OCR failed: no text extracted"})
	})

	_, err := c.Analyze(context.Background(), []byte("x"), "rx.jpg")
	var aerr *AnalysisError
	if !errors.As(err, &aerr) {
		t.Fatalf("error = %v, want *AnalysisError", err)
	}
	if aerr.Msg != "OCR failed: no text extracted" {
		t.Errorf("msg = %q", aerr.Msg)
	}
}

func TestAnalyze_MissingMedications(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"advice":"rest"}`))
	})

	_, err := c.Analyze(context.Background(), []byte("x"), "rx.jpg")
	var aerr *AnalysisError
	if !errors.As(err, &aerr) {
		t.Fatalf("error = %v, want *AnalysisError for missing medications", err)
	}
}

func TestReAnalyze_SendsEditedText(t *testing.T) {
	var gotText string
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reanalyze" {
			t.Errorf("path = %s, want /reanalyze", r.URL.Path)
		}
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		gotText = req["text"]
		json.NewEncoder(w).Encode(Analysis{Medications: []Medication{{Name: "Aspirin"}}})
	})

	_, err := c.ReAnalyze(context.Background(), "Aspirin - 75mg - daily")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotText != "Aspirin - 75mg - daily" {
		t.Errorf("sent text = %q", gotText)
	}
}

func TestFilterMedicationNames(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"all placeholders", []string{"Illegible", "N/A"}, []string{}},
		{"mixed case placeholders", []string{"ILLEGIBLE", "n/a", "Metformin"}, []string{"Metformin"}},
		{"blank entries", []string{"", "  ", "Aspirin"}, []string{"Aspirin"}},
		{"all real", []string{"Metformin", "Aspirin"}, []string{"Metformin", "Aspirin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterMedicationNames(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FilterMedicationNames(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSummarize_AllPlaceholdersFailsBeforeNetwork(t *testing.T) {
	called := false
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := c.Summarize(context.Background(), []string{"Illegible", "N/A"})
	var serr *SummaryError
	if !errors.As(err, &serr) {
		t.Fatalf("error = %v, want *SummaryError", err)
	}
	if called {
		t.Error("network call was issued for an empty medication set")
	}
}

func TestSummarize_Success(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string][]string
		json.NewDecoder(r.Body).Decode(&req)
		if !reflect.DeepEqual(req["medications"], []string{"Metformin"}) {
			t.Errorf("medications = %v", req["medications"])
		}
		json.NewEncoder(w).Encode(Summary{
			Summary:          "Controls blood sugar.",
			HealthTips:       []string{"Take with food"},
			FoodInteractions: []string{"Limit alcohol"},
		})
	})

	got, err := c.Summarize(context.Background(), []string{"Metformin", "Illegible"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Summary != "Controls blood sugar." || len(got.HealthTips) != 1 {
		t.Errorf("summary = %+v", got)
	}
}

func TestTranslate_Success(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req translateRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.TargetLanguage != "es" {
			t.Errorf("target language = %q", req.TargetLanguage)
		}
		json.NewEncoder(w).Encode(translateResponse{
			Analysis: &Analysis{Medications: []Medication{{Name: "Metformina"}}, Advice: "Beba agua."},
		})
	})

	analysis := &Analysis{Medications: []Medication{{Name: "Metformin"}}, Advice: "Drink water."}
	gotA, gotS, err := c.Translate(context.Background(), analysis, nil, "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotA.Medications[0].Name != "Metformina" {
		t.Errorf("translated name = %q", gotA.Medications[0].Name)
	}
	if gotS != nil {
		t.Errorf("summary = %+v, want nil", gotS)
	}
}

func TestTranslate_FailureYieldsTranslationError(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, _, err := c.Translate(context.Background(), &Analysis{Medications: []Medication{}}, nil, "es")
	var terr *TranslationError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %v, want *TranslationError", err)
	}
}

func TestTranslate_MissingShapeRejected(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	_, _, err := c.Translate(context.Background(), &Analysis{Medications: []Medication{}}, nil, "es")
	var terr *TranslationError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %v, want *TranslationError for missing analysis", err)
	}
}

func TestChat_RoundTrip(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.History) != 1 || req.History[0].Content != "Can I take these together?" {
			t.Errorf("history = %+v", req.History)
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "Yes, with food."})
	})

	got, err := c.Chat(context.Background(),
		[]ChatTurn{{Role: "user", Content: "Can I take these together?"}},
		&Analysis{Medications: []Medication{{Name: "Metformin"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Yes, with food." {
		t.Errorf("response = %q", got)
	}
}

func TestFindPharmacies(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lat") == "" || r.URL.Query().Get("lng") == "" {
			t.Error("missing lat/lng query params")
		}
		json.NewEncoder(w).Encode(map[string][]Pharmacy{
			"pharmacies": {{Name: "City Pharmacy", Address: "1 Main St", Phone: "555-0100"}},
		})
	})

	got, err := c.FindPharmacies(context.Background(), 12.97, 77.59)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "City Pharmacy" {
		t.Errorf("pharmacies = %+v", got)
	}
}

func TestFindPharmacies_Failure(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.FindPharmacies(context.Background(), 0, 0)
	var perr *PharmacyLookupError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *PharmacyLookupError", err)
	}
}
