package mq

import (
	"log"

	"campuswallet/internal/config"

	"github.com/IBM/sarama"
)

// Producer wraps a sarama sync producer. It is passed explicitly to the
// outbox sender; there is no package-level producer state.
type Producer struct {
	producer sarama.SyncProducer
}

func NewProducer(cfg *config.KafkaConfig) *Producer {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kafkaConfig)
	if err != nil {
		log.Fatalf("failed to create Kafka producer: %v", err)
	}

	log.Println("Kafka producer created")
	return &Producer{producer: producer}
}

func (p *Producer) Send(topic, key, value string) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.StringEncoder(value),
	}

	_, _, err := p.producer.SendMessage(msg)
	return err
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
