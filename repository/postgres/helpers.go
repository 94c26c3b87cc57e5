package postgres

func nullInt(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
