package recognition

// Name tokens used by the random recognizer. Drawn independently with
// replacement, so e.g. "Hoàng" may appear as both family and middle name.
var (
	firstNames = []string{
		"Nguyễn", "Trần", "Lê", "Phạm", "Hoàng", "Huỳnh", "Phan", "Vũ",
		"Võ", "Đặng", "Bùi", "Đỗ", "Hồ", "Ngô", "Dương",
	}
	middleNames = []string{
		"Văn", "Thị", "Minh", "Hoàng", "Thanh", "Quang", "Hữu", "Đức",
		"Anh", "Tuấn", "Thành", "Xuân", "Thu", "Hạ", "Đông",
	}
	lastNames = []string{
		"An", "Bình", "Cường", "Dũng", "Hùng", "Khang", "Long", "Nam",
		"Phong", "Quân", "Sơn", "Tài", "Thắng", "Vinh", "Yên",
		"Lan", "Linh", "Mai", "Nga", "Oanh", "Phương", "Quỳnh", "Thảo",
		"Trang", "Uyên", "Vân", "Xuân", "Yến", "Hương", "Hà",
	}
)

// FirstNames returns a copy of the family-name tokens.
func FirstNames() []string { return append([]string(nil), firstNames...) }

// MiddleNames returns a copy of the middle-name tokens.
func MiddleNames() []string { return append([]string(nil), middleNames...) }

// LastNames returns a copy of the given-name tokens.
func LastNames() []string { return append([]string(nil), lastNames...) }
