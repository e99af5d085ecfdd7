package plugin

// atoi converts s like the C library function of the same name: leading
// whitespace is skipped, an optional sign is accepted and conversion stops
// at the first non-digit. Strings without leading digits yield 0
func atoi(s string) int {
	i := 0
	for i < len(s) && (s[i] == ' ' || (s[i] >= '\t' && s[i] <= '\r')) {
		i++
	}

	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}

	n := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
	}

	if neg {
		return -n
	}
	return n
}
