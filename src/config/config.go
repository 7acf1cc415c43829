package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"access-coordinator/src/models"
)

// GlobalConfig holds everything the coordinator reads from the environment.
type GlobalConfig struct {
	LogLevel   string
	Host       string
	Port       string
	RabbitHost string
	RabbitPort int32
	RabbitUser string
	RabbitPass string

	database DatabaseConfig

	// Role hierarchy, highest priority first.
	RolePriority    []models.Role
	PrivilegedRoles []models.Role
	BoundedRoles    []models.Role

	// Fixed duration of a bounded session, in seconds.
	GuestSessionSeconds int
}

// DatabaseConfig holds the PostgreSQL connection details.
type DatabaseConfig struct {
	host     string
	port     int
	user     string
	password string
	dbName   string
}

func (d *DatabaseConfig) GetHost() string     { return d.host }
func (d *DatabaseConfig) GetPort() int        { return d.port }
func (d *DatabaseConfig) GetUser() string     { return d.user }
func (d *DatabaseConfig) GetPassword() string { return d.password }
func (d *DatabaseConfig) GetDBName() string   { return d.dbName }

func NewConfig() (GlobalConfig, error) {
	// Get RabbitMQ connection details from environment
	rabbitHost := os.Getenv("RABBITMQ_HOST")
	if rabbitHost == "" {
		return GlobalConfig{}, fmt.Errorf("RABBITMQ_HOST environment variable is required")
	}

	rabbitPortStr := os.Getenv("RABBITMQ_PORT")
	if rabbitPortStr == "" {
		return GlobalConfig{}, fmt.Errorf("RABBITMQ_PORT environment variable is required")
	}
	rabbitPort, err := strconv.ParseInt(rabbitPortStr, 10, 32)
	if err != nil {
		return GlobalConfig{}, fmt.Errorf("RABBITMQ_PORT must be a valid integer: %w", err)
	}

	rabbitUser := os.Getenv("RABBITMQ_USER")
	if rabbitUser == "" {
		return GlobalConfig{}, fmt.Errorf("RABBITMQ_USER environment variable is required")
	}

	rabbitPass := os.Getenv("RABBITMQ_PASS")
	if rabbitPass == "" {
		return GlobalConfig{}, fmt.Errorf("RABBITMQ_PASS environment variable is required")
	}

	// Set log level from environment
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		return GlobalConfig{}, fmt.Errorf("LOG_LEVEL environment variable is required")
	}

	host := os.Getenv("HOST")
	if host == "" {
		return GlobalConfig{}, fmt.Errorf("HOST environment variable is required")
	}

	port := os.Getenv("PORT")
	if port == "" {
		return GlobalConfig{}, fmt.Errorf("PORT environment variable is required")
	}

	database, err := newDatabaseConfig()
	if err != nil {
		return GlobalConfig{}, err
	}

	guestSeconds := 60
	if raw := os.Getenv("GUEST_SESSION_SECONDS"); raw != "" {
		guestSeconds, err = strconv.Atoi(raw)
		if err != nil || guestSeconds <= 0 {
			return GlobalConfig{}, fmt.Errorf("GUEST_SESSION_SECONDS must be a positive integer")
		}
	}

	return GlobalConfig{
		LogLevel:            logLevel,
		Host:                host,
		Port:                port,
		RabbitHost:          rabbitHost,
		RabbitPort:          int32(rabbitPort),
		RabbitUser:          rabbitUser,
		RabbitPass:          rabbitPass,
		database:            database,
		RolePriority:        roleListEnv("ROLE_PRIORITY", []models.Role{models.RoleSuperadmin, models.RoleAdmin, models.RoleUser, models.RoleGuest}),
		PrivilegedRoles:     roleListEnv("PRIVILEGED_ROLES", []models.Role{models.RoleSuperadmin, models.RoleAdmin}),
		BoundedRoles:        roleListEnv("BOUNDED_ROLES", []models.Role{models.RoleGuest}),
		GuestSessionSeconds: guestSeconds,
	}, nil
}

func newDatabaseConfig() (DatabaseConfig, error) {
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		return DatabaseConfig{}, fmt.Errorf("DB_HOST environment variable is required")
	}

	dbPortStr := os.Getenv("DB_PORT")
	if dbPortStr == "" {
		return DatabaseConfig{}, fmt.Errorf("DB_PORT environment variable is required")
	}
	dbPort, err := strconv.Atoi(dbPortStr)
	if err != nil {
		return DatabaseConfig{}, fmt.Errorf("DB_PORT must be a valid integer: %w", err)
	}

	dbUser := os.Getenv("DB_USER")
	if dbUser == "" {
		return DatabaseConfig{}, fmt.Errorf("DB_USER environment variable is required")
	}

	dbPass := os.Getenv("DB_PASS")
	if dbPass == "" {
		return DatabaseConfig{}, fmt.Errorf("DB_PASS environment variable is required")
	}

	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		return DatabaseConfig{}, fmt.Errorf("DB_NAME environment variable is required")
	}

	return DatabaseConfig{
		host:     dbHost,
		port:     dbPort,
		user:     dbUser,
		password: dbPass,
		dbName:   dbName,
	}, nil
}

// roleListEnv parses a comma-separated role list, falling back to the
// default when the variable is unset.
func roleListEnv(name string, fallback []models.Role) []models.Role {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	roles := make([]models.Role, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			roles = append(roles, models.Role(p))
		}
	}
	if len(roles) == 0 {
		return fallback
	}
	return roles
}

// GetDatabaseConfig returns the PostgreSQL connection settings.
func (c *GlobalConfig) GetDatabaseConfig() *DatabaseConfig {
	return &c.database
}

func (c *GlobalConfig) GetHost() string { return c.Host }
func (c *GlobalConfig) GetPort() string { return c.Port }

// AMQPURL builds the RabbitMQ connection string.
func (c *GlobalConfig) AMQPURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.RabbitUser, c.RabbitPass, c.RabbitHost, c.RabbitPort)
}

// Hierarchy builds the injected role hierarchy consulted by admission,
// queue ordering and permission checks.
func (c *GlobalConfig) Hierarchy() *models.RoleHierarchy {
	return models.NewRoleHierarchy(c.RolePriority, c.PrivilegedRoles, c.BoundedRoles)
}
