package domain

import "strings"

// Doctor is an entry of the bookable doctor catalogue.
type Doctor struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Image      string  `json:"image,omitempty"`
	Speciality string  `json:"speciality"`
	Degree     string  `json:"degree,omitempty"`
	Experience string  `json:"experience,omitempty"`
	About      string  `json:"about,omitempty"`
	Fees       float64 `json:"fees"`
	Address    string  `json:"address,omitempty"`
	Available  bool    `json:"available"`
}

// Validate checks the fields needed to list a doctor.
func (d Doctor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return InvalidInput("doctor name is required")
	}
	if strings.TrimSpace(d.Speciality) == "" {
		return InvalidInput("doctor speciality is required")
	}
	if d.Fees < 0 {
		return InvalidInput("doctor fees must not be negative")
	}
	return nil
}

// Snapshot returns the denormalised copy stored on appointments.
func (d Doctor) Snapshot() DoctorInfo {
	return DoctorInfo{
		Name:       d.Name,
		Speciality: d.Speciality,
		Degree:     d.Degree,
		Experience: d.Experience,
		Image:      d.Image,
		Fees:       d.Fees,
		Address:    d.Address,
	}
}

// Fields returns the directory representation of the doctor.
func (d Doctor) Fields() map[string]any {
	return map[string]any{
		"name":       d.Name,
		"image":      d.Image,
		"speciality": d.Speciality,
		"degree":     d.Degree,
		"experience": d.Experience,
		"about":      d.About,
		"fees":       d.Fees,
		"address":    d.Address,
		"available":  d.Available,
	}
}

// DoctorFromFields decodes a doctors document.
func DoctorFromFields(id string, fields map[string]any) Doctor {
	return Doctor{
		ID:         id,
		Name:       stringField(fields, "name"),
		Image:      stringField(fields, "image"),
		Speciality: stringField(fields, "speciality"),
		Degree:     stringField(fields, "degree"),
		Experience: stringField(fields, "experience"),
		About:      stringField(fields, "about"),
		Fees:       floatField(fields, "fees"),
		Address:    stringField(fields, "address"),
		Available:  boolField(fields, "available"),
	}
}
