package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"loanPortal/models"
)

// ErrUnknownLevel возвращается при запросе уровня вне шести распознаваемых значений
var ErrUnknownLevel = errors.New("неизвестный уровень заявки")

// LevelEntry представляет запись каталога уровней: шаблон сообщения
// заявителю и имя поля сбора, связанного с уровнем
type LevelEntry struct {
	MessageTemplate string `mapstructure:"message"`
	FeeField        string `mapstructure:"fee_field"`
}

// LevelCatalog представляет каталог уровней. Загружается один раз при старте
// процесса и дальше не изменяется.
type LevelCatalog struct {
	entries map[models.LoanLevel]LevelEntry
}

// Шаблоны сообщений по умолчанию. Могут быть переопределены файлом levels.yaml.
var defaultLevelEntries = map[models.LoanLevel]LevelEntry{
	models.LoanLevelTransfer: {
		MessageTemplate: "Для перевода средств необходимо оплатить комиссию за перевод. Сумма указана в вашем личном кабинете.",
		FeeField:        "transfer",
	},
	models.LoanLevelInsurance: {
		MessageTemplate: "Ваша заявка требует оформления страхового взноса. Сумма взноса указана в вашем личном кабинете.",
		FeeField:        "insurance",
	},
	models.LoanLevelVIP: {
		MessageTemplate: "Ваша заявка переведена на VIP-обслуживание. Для продолжения оплатите VIP-сбор.",
		FeeField:        "vip",
	},
	models.LoanLevelMaintenance: {
		MessageTemplate: "По вашей заявке проводится сервисное обслуживание. Для продолжения оплатите сервисный сбор.",
		FeeField:        "maintenance",
	},
	models.LoanLevelFault: {
		MessageTemplate: "В данных вашей заявки обнаружена ошибка. Для ее устранения оплатите сбор за исправление.",
		FeeField:        "fault",
	},
	// Для custom шаблон пуст: сообщение задает сотрудник вручную
	models.LoanLevelCustom: {
		MessageTemplate: "",
		FeeField:        "custom",
	},
}

// NewLevelCatalog загружает каталог уровней. Значения по умолчанию зашиты в
// код, файл levels.yaml (если найден) их переопределяет.
func NewLevelCatalog() (*LevelCatalog, error) {
	v := viper.New()
	v.SetConfigName("levels")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	for level, entry := range defaultLevelEntries {
		v.SetDefault(fmt.Sprintf("levels.%s.message", level), entry.MessageTemplate)
		v.SetDefault(fmt.Sprintf("levels.%s.fee_field", level), entry.FeeField)
	}

	// Файл необязателен, ошибкой считается только поврежденный файл
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("ошибка чтения levels.yaml: %v", err)
		}
	}

	entries := make(map[models.LoanLevel]LevelEntry, len(defaultLevelEntries))
	for level := range defaultLevelEntries {
		var entry LevelEntry
		if err := v.UnmarshalKey(fmt.Sprintf("levels.%s", level), &entry); err != nil {
			return nil, fmt.Errorf("ошибка разбора каталога уровней: %v", err)
		}
		entries[level] = entry
	}

	return &LevelCatalog{entries: entries}, nil
}

// Resolve возвращает запись каталога для уровня. Пустой уровень (еще не
// назначен) дает пустую запись, неизвестный ключ — ErrUnknownLevel.
func (c *LevelCatalog) Resolve(level models.LoanLevel) (LevelEntry, error) {
	if level == models.LoanLevelUnset {
		return LevelEntry{}, nil
	}
	entry, ok := c.entries[level]
	if !ok {
		return LevelEntry{}, ErrUnknownLevel
	}
	return entry, nil
}
