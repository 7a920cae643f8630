package webhook

import (
	"encoding/xml"
	"net/http"
)

// twimlResponse is the minimal messaging-vendor reply envelope: a single
// Message element inside a Response document.
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// writeTwiML renders the reply text as the vendor's XML envelope.
func writeTwiML(w http.ResponseWriter, reply string) {
	body, err := xml.Marshal(twimlResponse{Message: reply})
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}
