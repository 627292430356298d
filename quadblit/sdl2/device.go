package main

import (
	"log"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
)

// queueFamilies holds the queue family indices the renderer submits to.
type queueFamilies struct {
	graphics int
	present  int
}

func (f queueFamilies) shared() bool {
	return f.graphics == f.present
}

// pickQueueFamilies returns the families to draw and present with, preferring
// a single family that does both. ok is false when either role is unserved.
func pickQueueFamilies(families []*core1_0.QueueFamilyProperties, canPresent func(family int) (bool, error)) (picked queueFamilies, ok bool, err error) {
	graphics, present := -1, -1

	for i, family := range families {
		draws := family.QueueFlags&core1_0.QueueGraphics != 0
		presents, err := canPresent(i)
		if err != nil {
			return queueFamilies{}, false, err
		}

		if draws && presents {
			return queueFamilies{graphics: i, present: i}, true, nil
		}
		if draws && graphics < 0 {
			graphics = i
		}
		if presents && present < 0 {
			present = i
		}
	}

	if graphics < 0 || present < 0 {
		return queueFamilies{}, false, nil
	}
	return queueFamilies{graphics: graphics, present: present}, true, nil
}

// missingNames lists the entries of required that available lacks, in order.
func missingNames[V any](available map[string]V, required []string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := available[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// pickPhysicalDevice selects the first device able to run the renderer and
// records its queue families for device, pool and swapchain creation.
func (app *QuadBlitApplication) pickPhysicalDevice() error {
	devices, _, err := app.instanceDriver.EnumeratePhysicalDevices()
	if err != nil {
		return errors.Wrap(err, "enumerate physical devices")
	}

	for _, device := range devices {
		properties, err := app.instanceDriver.GetPhysicalDeviceProperties(device)
		if err != nil {
			return errors.Wrap(err, "read physical device properties")
		}

		families, reason, err := app.evaluateDevice(device)
		if err != nil {
			return errors.Wrapf(err, "evaluate %s", properties.DriverName)
		}
		if reason != "" {
			log.Printf("skipping %s: %s", properties.DriverName, reason)
			continue
		}

		app.physicalDevice = device
		app.families = families
		log.Printf("using %s (graphics family %d, present family %d)", properties.DriverName, families.graphics, families.present)
		return nil
	}

	return errors.Errorf("none of %d physical devices can present to the window", len(devices))
}

// evaluateDevice returns the queue families device would use, or a reason it
// cannot be used.
func (app *QuadBlitApplication) evaluateDevice(device core1_0.PhysicalDevice) (queueFamilies, string, error) {
	extensions, _, err := app.instanceDriver.EnumerateDeviceExtensionProperties(device)
	if err != nil {
		return queueFamilies{}, "", err
	}
	if missing := missingNames(extensions, deviceExtensions); len(missing) > 0 {
		return queueFamilies{}, "missing " + strings.Join(missing, ", "), nil
	}

	support, err := app.querySurfaceSupport(device)
	if err != nil {
		return queueFamilies{}, "", err
	}
	if len(support.formats) == 0 || len(support.presentModes) == 0 {
		return queueFamilies{}, "no surface formats or present modes", nil
	}

	families, ok, err := pickQueueFamilies(app.instanceDriver.GetPhysicalDeviceQueueFamilyProperties(device),
		func(family int) (bool, error) {
			supported, _, err := app.surfaceExtension.GetPhysicalDeviceSurfaceSupport(app.surface, device, family)
			return supported, err
		})
	if err != nil {
		return queueFamilies{}, "", err
	}
	if !ok {
		return queueFamilies{}, "no queue families for drawing and presenting", nil
	}

	// Required on portability implementations such as MoltenVK
	_, app.portabilitySubset = extensions[khr_portability_subset.ExtensionName]
	return families, "", nil
}
