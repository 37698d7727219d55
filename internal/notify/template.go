package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"lifedrop/pkg/types"
)

const noneProvided = "None provided"

var requestEmail = template.Must(template.New("request").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #eee;">
    <h2 style="color: #d32f2f;">Urgent Blood Request</h2>
    <p>A patient near you needs <strong>{{.BloodGroup}}</strong> blood. You are receiving this because you are a registered {{.BloodGroup}} donor in {{.City}}.</p>
    <table style="width: 100%; border-collapse: collapse;">
      <tr><td><strong>Requester</strong></td><td>{{.RequesterName}}</td></tr>
      <tr><td><strong>Blood Group</strong></td><td>{{.BloodGroup}}</td></tr>
      <tr><td><strong>Units Needed</strong></td><td>{{.Units}}</td></tr>
      <tr><td><strong>Location</strong></td><td>{{.Location}}</td></tr>
      {{- if .Hospital}}
      <tr><td><strong>Hospital</strong></td><td>{{.Hospital}}</td></tr>
      {{- end}}
      <tr><td><strong>Contact Number</strong></td><td>{{.ContactNumber}}</td></tr>
      <tr><td><strong>Urgency</strong></td><td>{{.Urgency}}</td></tr>
      <tr><td><strong>Additional Info</strong></td><td>{{.AdditionalInfo}}</td></tr>
    </table>
    <p>If you are able to donate, please contact the requester directly.</p>
    <p style="font-size: 12px; color: #888;">LifeDrop blood donation network</p>
  </div>
</body>
</html>
`))

type requestEmailData struct {
	RequesterName  string
	BloodGroup     types.BloodGroup
	Units          int
	City           string
	Location       string
	Hospital       string
	ContactNumber  string
	Urgency        types.Urgency
	AdditionalInfo string
}

func requestSubject(group types.BloodGroup) string {
	return fmt.Sprintf("Urgent Blood Request: %s Blood Needed", group)
}

func renderRequestEmail(d Details) (string, error) {
	data := requestEmailData{
		RequesterName:  d.RequesterName,
		BloodGroup:     d.BloodGroup,
		Units:          d.Units,
		City:           d.City,
		Location:       fmt.Sprintf("%s, %s", d.City, d.State),
		Hospital:       d.Hospital,
		ContactNumber:  d.ContactNumber,
		Urgency:        d.Urgency,
		AdditionalInfo: d.AdditionalInfo,
	}
	if data.AdditionalInfo == "" {
		data.AdditionalInfo = noneProvided
	}

	var buf bytes.Buffer
	if err := requestEmail.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render request email: %w", err)
	}

	return buf.String(), nil
}
