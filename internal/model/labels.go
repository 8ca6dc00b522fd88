package model

// NumClasses is the width of the classifier's output layer.
const NumClasses = 43

// labels[i] names output neuron i. The order is fixed by training.
var labels = [NumClasses]string{
	"Speed limit (20km/h)",
	"Speed limit (30km/h)",
	"Speed limit (50km/h)",
	"Speed limit (60km/h)",
	"Speed limit (70km/h)",
	"Speed limit (80km/h)",
	"End of speed limit (80km/h)",
	"Speed limit (100km/h)",
	"Speed limit (120km/h)",
	"No passing",
	"No passing for vehicles over 3.5 tons",
	"Right-of-way at the next intersection",
	"Priority road",
	"Yield",
	"Stop",
	"No vehicles",
	"Vehicles over 3.5 tons prohibited",
	"No entry",
	"General caution",
	"Dangerous curve to the left",
	"Dangerous curve to the right",
	"Double curve",
	"Bumpy road",
	"Slippery road",
	"Road narrows on the right",
	"Road work",
	"Traffic signals",
	"Pedestrians",
	"Children crossing",
	"Bicycles crossing",
	"Beware of ice/snow",
	"Wild animals crossing",
	"End of all speed and passing limits",
	"Turn right ahead",
	"Turn left ahead",
	"Ahead only",
	"Go straight or right",
	"Go straight or left",
	"Keep right",
	"Keep left",
	"Roundabout mandatory",
	"End of no passing",
	"End of no passing by vehicles over 3.5 tons",
}

// Labels returns a copy of the class label table.
func Labels() []string {
	out := make([]string, NumClasses)
	copy(out, labels[:])
	return out
}

// Label returns the sign name for output index i.
func Label(i int) (string, bool) {
	if i < 0 || i >= NumClasses {
		return "", false
	}
	return labels[i], true
}
