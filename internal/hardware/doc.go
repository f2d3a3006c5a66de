// Package hardware drives the controller's relay lines and reads its
// DS18B20 temperature sensor.
//
// Relays are driven through the Linux GPIO character device using
// go-gpiocdev. On other platforms OpenGPIO returns ErrUnsupported and the
// "memory" driver from package device must be used instead.
//
// The temperature sensor is read through the kernel w1-therm driver,
// which exposes each probe as /sys/bus/w1/devices/28-*/w1_slave.
package hardware
