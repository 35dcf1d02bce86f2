package snowflake

import "strings"

// ParseConnectionString reads the semicolon separated form
// scheme=https;ACCOUNT=xxx;HOST=yyy;USER=zzz;PASSWORD=www;DB=database.schema;WAREHOUSE=wh
func ParseConnectionString(connStr string) Config {
	parts := make(map[string]string)
	for _, part := range strings.Split(connStr, ";") {
		key, value, ok := strings.Cut(part, "=")
		if !ok || key == "" {
			continue
		}
		parts[strings.ToUpper(strings.TrimSpace(key))] = value
	}

	database, schema, _ := strings.Cut(parts["DB"], ".")
	return Config{
		Account:   parts["ACCOUNT"],
		User:      parts["USER"],
		Password:  parts["PASSWORD"],
		Database:  database,
		Schema:    schema,
		Warehouse: parts["WAREHOUSE"],
	}
}
