package sandbox

import (
	"maps"
	"sync"
)

// collection is one in-memory entity table with server-assigned ids.
type collection struct {
	mu     sync.Mutex
	nextID int64
	items  []map[string]any
}

func newCollection(seed ...map[string]any) *collection {
	c := &collection{nextID: 1}
	for _, item := range seed {
		c.insert(item)
	}
	return c
}

func (c *collection) list() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, len(c.items))
	for i, item := range c.items {
		out[i] = maps.Clone(item)
	}
	return out
}

func (c *collection) insert(item map[string]any) map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec := maps.Clone(item)
	rec["id"] = c.nextID
	c.nextID++
	c.items = append(c.items, rec)
	return maps.Clone(rec)
}

func (c *collection) update(id int64, changes map[string]any) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.items {
		if item["id"] == id {
			for k, v := range changes {
				if k == "id" {
					continue
				}
				item[k] = v
			}
			return maps.Clone(item), true
		}
	}
	return nil, false
}

func (c *collection) remove(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, item := range c.items {
		if item["id"] == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

func (c *collection) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func seedData() map[string][]map[string]any {
	return map[string][]map[string]any{
		"doctors": {
			{"first_name": "Wanjiru", "last_name": "Kamau", "email": "wanjiru.kamau@afya.test", "phone_number": "+254700000001", "gender": "female", "specialization": "Cardiology", "about": "Interventional cardiologist", "role": "Doctor", "consultation_fee": 2500, "medical_license_number": "KMPDC-1001"},
			{"first_name": "Otieno", "last_name": "Odhiambo", "email": "otieno.odhiambo@afya.test", "phone_number": "+254700000002", "gender": "male", "specialization": "Pediatrics", "about": "General pediatrician", "role": "Doctor", "consultation_fee": 1800, "medical_license_number": "KMPDC-1002"},
			{"first_name": "Amina", "last_name": "Hassan", "email": "amina.hassan@afya.test", "phone_number": "+254700000003", "gender": "female", "specialization": "Dermatology", "about": "Skin and hair", "role": "Doctor", "consultation_fee": 2000, "medical_license_number": "KMPDC-1003"},
		},
		"patients": {
			{"first_name": "Brian", "last_name": "Mwangi", "email": "brian.mwangi@mail.test", "phone_number": "+254711000001", "gender": "male", "national_id": "29384756", "date_of_birth": "1990-04-12"},
			{"first_name": "Faith", "last_name": "Njeri", "email": "faith.njeri@mail.test", "phone_number": "+254711000002", "gender": "female", "national_id": "31827465", "date_of_birth": "1985-11-03"},
		},
		"appointments": {
			{"appointment_method": "video", "date": "2026-03-02", "time": "09:30", "status": "scheduled", "patient_id": 1, "doctor_id": 1, "purpose": "Chest pain follow-up", "details": "Bring ECG", "meet_link": "https://meet.afya.test/abc"},
			{"appointment_method": "in-person", "date": "2026-02-20", "time": "14:00", "status": "completed", "patient_id": 2, "doctor_id": 2, "purpose": "Vaccination"},
		},
		"reports": {
			{"appointment_id": 2, "doctor_id": 2, "patient_id": 2, "diagnosis": "Routine immunisation", "prescription": "None", "recommendations": "Return in 6 months", "created_at": "2026-02-20T15:00:00Z"},
		},
		"feedbacks": {
			{"patient_id": 1, "comment": "Quick and helpful video call", "rating": 5, "upvotes": 3, "created_at": "2026-03-02T10:10:00Z"},
			{"patient_id": 2, "comment": "Waited a while at reception", "rating": 3, "upvotes": 1, "created_at": "2026-02-20T16:00:00Z"},
		},
		"contact": {
			{"name": "Grace Achieng", "email": "grace@mail.test", "phone_number": "+254722000001", "subject": "Partnership", "message": "We run a clinic in Kisumu.", "status": "unreplied"},
			{"name": "Peter Kiptoo", "email": "peter@mail.test", "phone_number": "+254722000002", "subject": "Billing", "message": "Charged twice.", "status": "replied"},
		},
	}
}
